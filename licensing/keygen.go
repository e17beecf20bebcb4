package licensing

import "github.com/google/uuid"

// KeyGenerator produces opaque license tokens. Generators never
// inspect the existing key space; the store's unique index on the key
// column is the authority, and a collision surfaces as
// storage.ErrDuplicateKey at write time.
type KeyGenerator func() string

// RandomKey returns a 128-bit random token in UUID form.
func RandomKey() string {
	return uuid.Must(uuid.NewRandom()).String()
}
