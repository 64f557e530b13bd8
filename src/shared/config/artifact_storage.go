package config

type ArtifactStorage interface {
	GetBucket() string
}

var _ ArtifactStorage = S3Storage{}

// S3Storage leaves Endpoint empty for AWS itself, set it for S3 compatible
// stores such as minio.
type S3Storage struct {
	BucketName      string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

func (s S3Storage) GetBucket() string {
	return s.BucketName
}

var _ ArtifactStorage = GoogleCloudStorage{}

type GoogleCloudStorage struct {
	StorageHost string
	SecretKey   string
	BucketName  string
}

func (g GoogleCloudStorage) GetBucket() string {
	return g.BucketName
}

var _ ArtifactStorage = LocalStorage{}

// LocalStorage keeps objects in process memory. Nothing survives a restart.
type LocalStorage struct {
	StorageHost string
	BucketName  string
}

func (l LocalStorage) GetBucket() string {
	return l.BucketName
}
