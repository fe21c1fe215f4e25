package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSecret(t *testing.T) {
	orig := readPassword
	defer func() { readPassword = orig }()
	readPassword = func(fd int) ([]byte, error) {
		return []byte("hunter2"), nil
	}

	var out bytes.Buffer
	secret, err := GetSecret(&out, "Portal password")
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), secret)
	assert.Contains(t, out.String(), "Portal password: ")
}

func TestGetSecret_ReadError(t *testing.T) {
	orig := readPassword
	defer func() { readPassword = orig }()
	readPassword = func(fd int) ([]byte, error) {
		return nil, errors.New("no tty")
	}

	var out bytes.Buffer
	_, err := GetSecret(&out, "Portal PIN")
	assert.Error(t, err)
}
