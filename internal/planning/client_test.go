package planning

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestAPITime_UnmarshalOffsets(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"colonless offset", `"2026-01-12T08:00:00+0100"`, time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC)},
		{"standard offset", `"2026-01-12T08:00:00+01:00"`, time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC)},
		{"negative colonless", `"2026-01-12T08:00:00-0500"`, time.Date(2026, 1, 12, 13, 0, 0, 0, time.UTC)},
		{"utc", `"2026-01-12T08:00:00Z"`, time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got APITime
			if err := got.UnmarshalJSON([]byte(tt.in)); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.in, err)
			}
			if !got.Time.Equal(tt.want) {
				t.Errorf("got %v, want %v", got.Time, tt.want)
			}
		})
	}
}

func TestAPITime_UnmarshalRejectsGarbage(t *testing.T) {
	var got APITime
	if err := got.UnmarshalJSON([]byte(`"yesterday"`)); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestFetchEvents_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/aurion/planning" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[
			{"id":"e1","title":"Analyse","start":"2026-01-12T08:00:00+0100","end":"2026-01-12T10:00:00+0100","className":"COURS_TD"},
			{"id":"e2","title":"TP Info","start":"2026-01-13T14:00:00+0100","end":"2026-01-13T16:00:00+0100","className":"TP"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	from, to := Window(time.Now())
	events, err := c.FetchEvents(context.Background(), "user@junia.com", "pw", from, to)
	if err != nil {
		t.Fatalf("FetchEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID != "e1" || events[0].CourseType != "COURS_TD" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	wantStart := time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC)
	if !events[0].Start.Time.Equal(wantStart) {
		t.Errorf("start = %v, want %v", events[0].Start.Time, wantStart)
	}
}

func TestFetchEvents_SourceRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.FetchEvents(context.Background(), "u@x", "pw", time.Now(), time.Now())
	if !errors.Is(err, ErrRejected) {
		t.Errorf("expected ErrRejected, got %v", err)
	}
}

func TestFetchEvents_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>maintenance</html>`},
		{"success without data", `{"success":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, testLogger())
			_, err := c.FetchEvents(context.Background(), "u@x", "pw", time.Now(), time.Now())
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestFetchEvents_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	srvURL := srv.URL
	srv.Close()

	c := NewClient(srvURL, testLogger())
	_, err := c.FetchEvents(context.Background(), "u@x", "pw", time.Now(), time.Now())
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("expected ErrUnreachable, got %v", err)
	}
}

func TestFetchEvents_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.FetchEvents(context.Background(), "u@x", "pw", time.Now(), time.Now())
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("expected ErrUnreachable, got %v", err)
	}
}

func TestCheckLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/aurion/check-login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	ok, err := c.CheckLogin(context.Background(), " User@Junia.COM ", "pw")
	if err != nil {
		t.Fatalf("CheckLogin: %v", err)
	}
	if !ok {
		t.Error("expected success")
	}
}

func TestWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	from, to := Window(now)

	if want := now.AddDate(0, 0, -7); !from.Equal(want) {
		t.Errorf("from = %v, want %v", from, want)
	}
	if want := now.AddDate(0, 2, 0); !to.Equal(want) {
		t.Errorf("to = %v, want %v", to, want)
	}
}
