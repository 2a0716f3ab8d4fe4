package crypto

import (
	"errors"
	"fmt"
	"hash/crc32"
)

// ErrChecksumMismatch контрольная сумма полезной нагрузки не совпала
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Checksum вычисляет CRC32-IEEE полезной нагрузки и возвращает ее в hex (8 символов).
// Пустая нагрузка (delete) дает "00000000".
func Checksum(payload []byte) string {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE(payload))
}

// VerifyChecksum проверяет, что payload соответствует сохраненной сумме
func VerifyChecksum(payload []byte, checksum string) error {
	if checksum == "" {
		return fmt.Errorf("%w: checksum is empty", ErrChecksumMismatch)
	}

	computed := Checksum(payload)
	if computed != checksum {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, checksum, computed)
	}

	return nil
}
