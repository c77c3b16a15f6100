package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zirius/shors/config"
	"github.com/zirius/shors/memdb"
)

func TestOpenMemory(t *testing.T) {
	st, err := Open(context.Background(), &config.Config{Backend: config.BackendMemory})
	assert.Nil(t, err)
	assert.IsType(t, &memdb.Store{}, st)
	assert.Nil(t, st.Close())
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Backend: "cassandra"})
	assert.NotNil(t, err)
}
