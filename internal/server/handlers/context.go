package handlers

import "context"

// contextKey тип для ключей контекста
type contextKey string

const (
	// DeviceIDKey ключ для хранения device_id в контексте
	DeviceIDKey contextKey = "device_id"
	// BusinessIDKey ключ для хранения business_id в контексте
	BusinessIDKey contextKey = "business_id"
)

// WithDevice добавляет устройство из токена в контекст запроса
func WithDevice(ctx context.Context, deviceID, businessID string) context.Context {
	ctx = context.WithValue(ctx, DeviceIDKey, deviceID)
	return context.WithValue(ctx, BusinessIDKey, businessID)
}

// GetDeviceID извлекает device_id из контекста запроса
func GetDeviceID(ctx context.Context) (string, bool) {
	deviceID, ok := ctx.Value(DeviceIDKey).(string)
	return deviceID, ok && deviceID != ""
}

// GetBusinessID извлекает business_id из контекста запроса
func GetBusinessID(ctx context.Context) (string, bool) {
	businessID, ok := ctx.Value(BusinessIDKey).(string)
	return businessID, ok && businessID != ""
}
