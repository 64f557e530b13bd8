package config

type Ledger interface {
	LedgerConfig()
}

var _ Ledger = MemoryLedger{}

type MemoryLedger struct{}

func (m MemoryLedger) LedgerConfig() {}

var _ Ledger = RedisLedger{}

type RedisLedger struct {
	URL       string
	KeyPrefix string
}

func (r RedisLedger) LedgerConfig() {}

type KeySource interface {
	KeySourceConfig()
}

var _ KeySource = NoKeySource{}

type NoKeySource struct{}

func (n NoKeySource) KeySourceConfig() {}

var _ KeySource = FileKeySource{}

type FileKeySource struct {
	Path string
}

func (f FileKeySource) KeySourceConfig() {}

var _ KeySource = DynamoKeySource{}

type DynamoKeySource struct {
	DynamoConfig Dynamo
	TableName    string
}

func (d DynamoKeySource) KeySourceConfig() {}
