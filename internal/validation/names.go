package validation

import (
	"fmt"
	"regexp"
)

var (
	// CollectionPattern допустимое имя коллекции: строчные латинские буквы, цифры и '_',
	// начинается с буквы, до 64 символов
	CollectionPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)
	// DocumentIDPattern допустимый идентификатор документа
	DocumentIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
	// DeviceIDPattern допустимый идентификатор устройства (UUID или произвольное имя)
	DeviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)
)

// MaxPayloadSize максимальный размер полезной нагрузки операции
const MaxPayloadSize = 1 << 20

// ValidateCollection проверяет имя коллекции
func ValidateCollection(collection string) error {
	if collection == "" {
		return fmt.Errorf("collection cannot be empty")
	}
	if !CollectionPattern.MatchString(collection) {
		return fmt.Errorf("collection %q can only contain lowercase letters, numbers and underscores and must start with a letter", collection)
	}
	return nil
}

// ValidateDocumentID проверяет идентификатор документа
func ValidateDocumentID(documentID string) error {
	if documentID == "" {
		return fmt.Errorf("document id cannot be empty")
	}
	if !DocumentIDPattern.MatchString(documentID) {
		return fmt.Errorf("document id %q contains invalid characters or is too long", documentID)
	}
	return nil
}

// ValidateDeviceID проверяет идентификатор устройства
func ValidateDeviceID(deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("device id cannot be empty")
	}
	if !DeviceIDPattern.MatchString(deviceID) {
		return fmt.Errorf("device id %q contains invalid characters or is too long", deviceID)
	}
	return nil
}

// ValidatePayload проверяет размер полезной нагрузки
func ValidatePayload(payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("payload must not exceed %d bytes, got %d", MaxPayloadSize, len(payload))
	}
	return nil
}
