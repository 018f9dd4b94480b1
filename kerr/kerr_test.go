package kerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vibeos/core/kerr"
)

func TestTaggedWrapsAndUnwraps(t *testing.T) {
	err := kerr.Tagged("FAT32", kerr.ErrNotFound)
	require.ErrorIs(t, err, kerr.ErrNotFound)
	require.Equal(t, "[FAT32] not found", err.Error())
}

func TestTaggedNilIsNil(t *testing.T) {
	require.NoError(t, kerr.Tagged("NET", nil))
}

func TestTagfFormatsAndUnwraps(t *testing.T) {
	err := kerr.Tagf("NET", kerr.ErrInvalid, "bad packet from %s", "10.0.2.2")
	require.ErrorIs(t, err, kerr.ErrInvalid)
	require.Equal(t, "[NET] bad packet from 10.0.2.2: invalid", err.Error())
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		kerr.ErrNotFound, kerr.ErrNotADir, kerr.ErrIsADir, kerr.ErrOutOfSpace,
		kerr.ErrIO, kerr.ErrInvalid, kerr.ErrTimeout, kerr.ErrWouldBlock,
		kerr.ErrUnsupported,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			require.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}
