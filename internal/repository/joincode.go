package repository

import (
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"
)

const (
	joinCodeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	joinCodeDigits  = "0123456789"
)

// GenerateJoinCode returns a code shaped like ABCD-123456.
func GenerateJoinCode() (string, error) {
	code := make([]byte, 0, 11)
	for i := 0; i < 4; i++ {
		c, err := randomChar(joinCodeLetters)
		if err != nil {
			return "", err
		}
		code = append(code, c)
	}
	code = append(code, '-')
	for i := 0; i < 6; i++ {
		c, err := randomChar(joinCodeDigits)
		if err != nil {
			return "", err
		}
		code = append(code, c)
	}
	return string(code), nil
}

func randomChar(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, errors.Wrap(err, "generate join code")
	}
	return alphabet[n.Int64()], nil
}
