package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mksagencies/storefront-backend/pkg/config"
	"github.com/mksagencies/storefront-backend/pkg/security"
)

var testArgon = config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func TestHashPasscodeReadsFirstLine(t *testing.T) {
	hash, err := hashPasscode(strings.NewReader("letmein\r\nignored\n"), testArgon)
	require.NoError(t, err)

	ok, err := security.VerifyPasscode("letmein", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPasscodeWithoutTrailingNewline(t *testing.T) {
	hash, err := hashPasscode(strings.NewReader("letmein"), testArgon)
	require.NoError(t, err)

	ok, err := security.VerifyPasscode("letmein", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPasscodeRejectsEmptyInput(t *testing.T) {
	_, err := hashPasscode(strings.NewReader("\n"), testArgon)
	assert.Error(t, err)
}
