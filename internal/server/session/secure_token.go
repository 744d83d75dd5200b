package session

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
)

// SecureToken generates a unique random token of the given length.
// Base58 keeps tokens copy-paste friendly (no look-alike characters).
func SecureToken(length int) string {
	const base58 = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	max := big.NewInt(int64(len(base58)))
	token := make([]byte, length)
	for i := range token {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err) // should never occur because max >= 0
		}
		token[i] = base58[n.Int64()]
	}

	return string(token)
}

// SecureCompare compares the given strings in a constant time.
// So length info is not leaked via timing attacks.
func SecureCompare(s1, s2 string) bool {
	return subtle.ConstantTimeCompare([]byte(s1), []byte(s2)) == 1
}
