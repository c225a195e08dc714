package vedirect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrorsPrefixed(t *testing.T) {
	for _, err := range []error{
		ErrTextChecksum, ErrHexChecksum, ErrHexMalformed, ErrHexOverflow,
		ErrFieldTruncated, ErrFrameFull, ErrTableFull, ErrNotWritable,
		ErrNoSerialPorts, ErrNoPort,
	} {
		assert.True(t, strings.HasPrefix(err.Error(), "vedirect: "), err.Error())
	}
}

func TestFrameErrorMessage(t *testing.T) {
	err := &FrameError{Err: ErrTextChecksum, State: StateChecksum, Checksum: 0x0A}
	assert.Equal(t, "vedirect: TEXT frame checksum mismatch (residue 0x0A)", err.Error())
	assert.ErrorIs(t, err, ErrTextChecksum)

	err = &FrameError{Err: ErrFieldTruncated, Field: "VERYLONG"}
	assert.Equal(t, "vedirect: field truncated: VERYLONG", err.Error())

	err = &FrameError{Err: ErrHexOverflow, State: StateRecordHex}
	assert.Equal(t, "vedirect: HEX buffer overflow (state record_hex)", err.Error())
}
