package storage

// Storage объединяет все локальные хранилища узла.
// Реализуется boltdb.Storage.
type Storage interface {
	OperationStorage
	DocumentStorage
	ConflictStorage
	MeshStorage
	MetadataStorage
}
