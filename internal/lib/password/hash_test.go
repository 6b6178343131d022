package password_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lavaderos/turnos-backend/internal/lib/password"
)

func TestGetHashAndCompare(t *testing.T) {
	hash, err := password.GetHash("lavadero123")
	require.NoError(t, err)
	require.NotEqual(t, "lavadero123", hash)

	require.NoError(t, password.CompareHash(hash, "lavadero123"))
	require.Error(t, password.CompareHash(hash, "wrong"))
}
