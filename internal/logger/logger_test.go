package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStage(t *testing.T) {
	buf := new(bytes.Buffer)
	log := New(buf, false)
	ctx := log.WithContext(context.Background())

	_, done := Stage(ctx, "generate")
	done(nil)

	_, done = Stage(ctx, "build")
	done(errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var finished, failed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &finished))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failed))

	require.Equal(t, "generate", finished["stage"])
	require.Equal(t, "info", finished["level"])
	require.Equal(t, "stage finished", finished["message"])

	require.Equal(t, "build", failed["stage"])
	require.Equal(t, "error", failed["level"])
	require.Equal(t, "boom", failed["error"])
}

func TestNew_debugLevel(t *testing.T) {
	buf := new(bytes.Buffer)
	log := New(buf, true)
	log.Debug().Msg("visible")
	require.Contains(t, buf.String(), "visible")

	buf.Reset()
	log = New(buf, false)
	log.Debug().Msg("hidden")
	require.Empty(t, buf.String())
}
