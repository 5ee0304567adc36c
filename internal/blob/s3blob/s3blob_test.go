package s3blob_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/concilia/internal/blob/s3blob"
	"github.com/agentstation/concilia/pkg/errors"
)

func TestConfigRequired(t *testing.T) {
	_, err := s3blob.New(context.Background(), s3blob.Config{Bucket: "b"})
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = s3blob.New(context.Background(), s3blob.Config{Endpoint: "localhost:9000"})
	assert.ErrorAs(t, err, &cfgErr)
}
