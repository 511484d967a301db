package ads

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeKnownCodes(t *testing.T) {
	tests := []struct {
		code uint32
		want string
	}{
		{0x001, "Internal error"},
		{0x006, "Target port not found"},
		{0x007, "Target machine not found"},
		{0x50A, "TwinCAT Router not active"},
		{0x702, "Invalid index group"},
		{0x706, "Invalid parameter value(s)"},
		{0x721, "Invalid array index"},
		{0x745, "Timeout elapsed"},
		{0x753, "No more symbols in cache"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.code), "code 0x%04x", tt.code)
	}
}

func TestDescribeIsTotal(t *testing.T) {
	for code, want := range descriptions {
		assert.Equal(t, want, Describe(code))
	}

	assert.Equal(t, "Unknown code 0x04d2", Describe(0x04d2))
	assert.Contains(t, Describe(0xFFFFFFFF), "0xffffffff")
	assert.Equal(t, "No error", Describe(0))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "ADS error 0x0702: Invalid index group", ErrDeviceInvalidIndexGroup.Error())
	assert.Equal(t, "ADS error 0x04d2: Unknown code 0x04d2", Error(0x04d2).Error())
	assert.True(t, ErrDeviceInvalidData.IsError())
	assert.False(t, ErrNoError.IsError())
}
