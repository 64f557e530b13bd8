package dynamolib

import (
	"context"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cockroachdb/errors"
	"github.com/guregu/dynamo"
	"github.com/veedubyou/stem-splitter-be/src/shared/config"
)

func NewDynamoDBWrapper(db *dynamo.DB) DynamoDBWrapper {
	return DynamoDBWrapper{DB: db}
}

func NewDynamoDBFromConfig(dynamoConfig config.Dynamo) (DynamoDBWrapper, error) {
	dbSession, err := session.NewSession()
	if err != nil {
		return DynamoDBWrapper{}, errors.Wrap(err, "Failed to create AWS session")
	}

	var dbConfig *aws.Config

	switch t := dynamoConfig.(type) {
	case config.ProdDynamo:
		dbConfig = aws.NewConfig().
			WithCredentials(credentials.NewStaticCredentials(
				t.AccessKeyID,
				t.SecretAccessKey,
				"",
			)).
			WithRegion(t.Region)

	case config.LocalDynamo:
		dbConfig = aws.NewConfig().
			WithCredentials(credentials.NewStaticCredentials(
				t.AccessKeyID,
				t.SecretAccessKey,
				"",
			)).
			WithRegion(t.Region).
			WithEndpoint(t.Host)

	default:
		return DynamoDBWrapper{}, errors.Newf("Unexpected dynamo config type %T", dynamoConfig)
	}

	return NewDynamoDBWrapper(dynamo.New(dbSession, dbConfig)), nil
}

type DynamoDBWrapper struct {
	*dynamo.DB
}

// ScanAll reads a whole table into out, a pointer to a slice. Only meant for
// small configuration tables that are read once.
func (d DynamoDBWrapper) ScanAll(ctx context.Context, tableName string, out any) error {
	err := d.DB.Table(tableName).
		Scan().
		Consistent(true).
		AllWithContext(ctx, out)

	if err != nil {
		return errors.Wrapf(err, "Failed to scan table %s", tableName)
	}

	return nil
}
