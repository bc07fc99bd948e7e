package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Cheap parameters keep the suite fast; the format is identical.
var testArgon2Params = Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestArgon2HashService_HashAndVerify(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(testArgon2Params)

	hash, err := svc.Hash("SecureP@ssw0rd!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"), hash)

	match, err := svc.Verify("SecureP@ssw0rd!", hash)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = svc.Verify("wrong-password", hash)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestArgon2HashService_UniqueSalts(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(testArgon2Params)

	hash1, err := svc.Hash("same-password")
	require.NoError(t, err)
	hash2, err := svc.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
}

func TestArgon2HashService_VerifiesHashFromOtherParams(t *testing.T) {
	old := NewArgon2HashServiceWithParams(Argon2Params{Time: 2, Memory: 2048, Threads: 2, KeyLen: 16, SaltLen: 8})
	hash, err := old.Hash("pw")
	require.NoError(t, err)

	match, err := NewArgon2HashServiceWithParams(testArgon2Params).Verify("pw", hash)
	require.NoError(t, err)
	assert.True(t, match, "parameters must be read from the stored hash")
}

func TestArgon2HashService_MalformedHash(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(testArgon2Params)
	for _, bad := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$!!!$a2V5",
	} {
		_, err := svc.Verify("pw", bad)
		assert.ErrorIs(t, err, errMalformedHash, bad)
	}
}
