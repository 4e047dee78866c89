package security

// Codec binds the credential encryption helpers to a fixed key so callers
// do not have to carry the key around.
type Codec struct {
	key []byte
}

func NewCodec(key []byte) *Codec {
	return &Codec{key: key}
}

func (c *Codec) Encrypt(plaintext string) (string, error) {
	return EncryptSecret(plaintext, c.key)
}

func (c *Codec) Decrypt(ciphertext string) (string, error) {
	return DecryptSecret(ciphertext, c.key)
}
