// Package otp genera los códigos de confirmación de un solo uso de los traslados.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// Digits longitud fija del código.
const Digits = 6

var upper = big.NewInt(1_000_000) // 10^Digits

// Generate devuelve un código numérico de Digits dígitos, uniforme en [0, 999999],
// con ceros a la izquierda. Usa crypto/rand: un código predecible permite confirmar
// traslados ajenos.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("otp: leer entropía: %w", err)
	}
	return fmt.Sprintf("%0*d", Digits, n.Int64()), nil
}

// Equal compara dos códigos en tiempo constante.
func Equal(submitted, expected string) bool {
	if len(submitted) != len(expected) || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) == 1
}

// Valid indica si s tiene el formato de un código.
func Valid(s string) bool {
	if len(s) != Digits {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
