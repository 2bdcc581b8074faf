package s3store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKMSRegistryValid(t *testing.T) {
	r := NewKMSRegistry([]string{"key-a", "key-b"})
	assert.True(t, r.Valid(""))
	assert.True(t, r.Valid("key-a"))
	assert.False(t, r.Valid("key-c"))
}

func TestKMSRegistryKeys(t *testing.T) {
	r := NewKMSRegistry([]string{"key-a", "key-b"})
	assert.ElementsMatch(t, []string{"key-a", "key-b"}, r.Keys())
}

func TestKMSRegistryEmpty(t *testing.T) {
	r := NewKMSRegistry(nil)
	assert.True(t, r.Valid(""))
	assert.False(t, r.Valid("anything"))
	assert.Empty(t, r.Keys())
}
