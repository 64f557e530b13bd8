package keys

import (
	"context"
	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stem-splitter-be/src/shared/config"
	"github.com/veedubyou/stem-splitter-be/src/shared/lib/dynamo"
	"gopkg.in/yaml.v3"
	"os"
	"strings"
)

// Load builds the registry from the configured source. A source that cannot
// be read leaves the service running with no valid keys.
func Load(ctx context.Context, source config.KeySource) Registry {
	keys, err := Read(ctx, source)
	if err != nil {
		log.WithError(err).
			WithField("source", source).
			Warn("Unlock keys unavailable, no key will be accepted")
		return NewRegistry(nil)
	}

	return NewRegistry(keys)
}

func Read(ctx context.Context, source config.KeySource) ([]string, error) {
	switch s := source.(type) {
	case config.NoKeySource:
		return nil, nil
	case config.FileKeySource:
		return ReadFile(s.Path)
	case config.DynamoKeySource:
		db, err := dynamolib.NewDynamoDBFromConfig(s.DynamoConfig)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to connect to DynamoDB")
		}
		return ReadTable(ctx, db, s.TableName)
	default:
		return nil, errors.Newf("Unexpected key source type %T", source)
	}
}

type keyFile struct {
	Keys []string `yaml:"keys"`
}

// ReadFile accepts either a top level list of keys or a document with a
// keys list. JSON files parse too, being valid YAML.
func ReadFile(path string) ([]string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read key file %s", path)
	}

	var list []string
	if err = yaml.Unmarshal(contents, &list); err == nil {
		return trimKeys(list), nil
	}

	doc := keyFile{}
	if err = yaml.Unmarshal(contents, &doc); err != nil {
		return nil, errors.Wrapf(err, "Key file %s is neither a list nor a keys document", path)
	}

	return trimKeys(doc.Keys), nil
}

type keyItem struct {
	Key string `dynamo:"key"`
}

func ReadTable(ctx context.Context, db dynamolib.DynamoDBWrapper, tableName string) ([]string, error) {
	items := []keyItem{}
	if err := db.ScanAll(ctx, tableName, &items); err != nil {
		return nil, errors.Wrap(err, "Failed to load unlock keys")
	}

	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}

	return trimKeys(keys), nil
}

func trimKeys(keys []string) []string {
	trimmed := make([]string, 0, len(keys))
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			trimmed = append(trimmed, key)
		}
	}

	return trimmed
}
