package causewayd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestEncodeEntryScrubsControlCharacters(t *testing.T) {
	enc := consoleEncoder{zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())}

	entry := zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Message: "evil\x1b[2Jtoken",
	}
	buf, err := enc.EncodeEntry(entry, []zapcore.Field{zap.String("name", "bell\x07name")})
	require.NoError(t, err)
	defer buf.Free()

	out := buf.String()
	assert.NotContains(t, out, "\x1b", "escape byte must not survive")
	assert.NotContains(t, out, "\x07", "bell byte must not survive")
	assert.Contains(t, out, "evil\x1a[2Jtoken")
	assert.Contains(t, out, "bell\x1aname")
}

func TestEncodeEntryKeepsWhitespace(t *testing.T) {
	enc := consoleEncoder{zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())}

	entry := zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Message: "tabs\tand spaces",
	}
	buf, err := enc.EncodeEntry(entry, nil)
	require.NoError(t, err)
	defer buf.Free()

	out := buf.String()
	assert.Contains(t, out, "tabs\tand spaces")
	// Console entries are newline terminated and the newline must survive the scrub.
	assert.Equal(t, uint8('\n'), out[len(out)-1])
}
