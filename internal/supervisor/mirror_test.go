package supervisor

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrors(t *testing.T) {
	ctx := context.Background()
	l := &fakeLauncher{}
	m := NewMirrors(NewRegistry[string](WithLauncher(l), WithKillTimeout(50*time.Millisecond)))

	require.NoError(t, m.Start(ctx, "R58M12ABCDE"))
	require.NoError(t, m.Start(ctx, "emulator-5554"))
	require.NoError(t, m.Start(ctx, " R58M12ABCDE "))

	cmds := l.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "scrcpy -s R58M12ABCDE", cmds[0].String())
	assert.Equal(t, "scrcpy -s emulator-5554", cmds[1].String())

	st := m.Status("R58M12ABCDE")
	assert.True(t, st.Running)
	assert.Equal(t, "R58M12ABCDE", st.Target)
	assert.Equal(t, "Android mirror R58M12ABCDE started successfully.", st.Message)

	// stopping one device leaves the other alone
	require.NoError(t, m.Stop("R58M12ABCDE"))
	assert.False(t, m.Status("R58M12ABCDE").Running)
	assert.True(t, m.Status("emulator-5554").Running)

	statuses := m.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "R58M12ABCDE", statuses[0].Target)
	assert.Equal(t, "emulator-5554", statuses[1].Target)

	require.NoError(t, m.Shutdown())
	assert.False(t, m.Status("emulator-5554").Running)

	var startErr *StartError
	assert.ErrorAs(t, m.Start(ctx, "  "), &startErr)
}

func TestMirrorsRejectInvalidSerials(t *testing.T) {
	l := &fakeLauncher{}
	reg := NewRegistry[string](WithLauncher(l))
	m := NewMirrors(reg)

	for _, serial := range []string{"", "   ", "two words", "tab\tseparated", "bell\a", strings.Repeat("x", maxSerialLen+1)} {
		err := m.Start(context.Background(), serial)
		var startErr *StartError
		require.ErrorAs(t, err, &startErr, "%q", serial)
		assert.ErrorIs(t, err, ErrInvalidSerial)
	}
	assert.Empty(t, l.Commands())
	assert.Zero(t, slotCount(reg))
	assert.Empty(t, m.Statuses())

	require.NoError(t, m.Start(context.Background(), "192.168.1.20:5555"))
	assert.Equal(t, 1, slotCount(reg))
	require.NoError(t, m.Shutdown())
}

func TestExecLauncher(t *testing.T) {
	t.Run("missing binary", func(t *testing.T) {
		_, err := ExecLauncher{}.Launch(Command{Name: "hypr-xdisplay-no-such-binary"})
		assert.Error(t, err)
	})

	t.Run("real process lifecycle", func(t *testing.T) {
		if _, err := exec.LookPath("sleep"); err != nil {
			t.Skip("sleep not available")
		}

		c := NewCasting(NewRegistry[Key](WithLauncher(testLauncher{Command{Name: "sleep", Args: []string{"30"}}})))
		key := Key{VNC, Receiver}

		require.NoError(t, c.Start(context.Background(), key, 0, ""))
		st := c.Status(key)
		require.True(t, st.Running)
		assert.Positive(t, st.PID)

		require.NoError(t, c.Stop(key))
		assert.False(t, c.Status(key).Running)
	})
}

// testLauncher runs a fixed command whatever it is asked to run
type testLauncher struct {
	cmd Command
}

func (l testLauncher) Launch(Command) (Process, error) {
	return ExecLauncher{}.Launch(l.cmd)
}
