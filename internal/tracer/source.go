package tracer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/windows"
)

// Source opens the unidirectional byte stream C1 reads from. The standard
// deployment spawns the tracer as a child process and reads its stdout; a
// file or socket stream is equally acceptable (spec §4.1).
type Source interface {
	// Open starts (or opens) the stream and returns a line reader. Close
	// must release any underlying process/file/socket.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ProcessSource spawns the external tracer subprocess and reads its stdout,
// grounded on the teacher's executor.BCCExecutor process-group and
// graceful-shutdown handling (internal/executor/executor.go), ported to
// Windows: CREATE_NEW_PROCESS_GROUP takes the place of Setpgid, and a
// CTRL_BREAK_EVENT to that group takes the place of SIGINT.
type ProcessSource struct {
	Command []string

	// OnStart, if set, is called with the spawned subprocess's pid right
	// after it starts (and again on every restart — spec.md:189's
	// TracerLost supervisor reopens the same Source). Lets the
	// observer-effect pid tracker seed the one pid it cannot learn from
	// the event stream itself.
	OnStart func(pid int32)
}

// processStream wraps a spawned *exec.Cmd's stdout so Close also reaps the
// process via a graceful CTRL_BREAK_EVENT/TerminateProcess sequence,
// matching the teacher's gracefulShutdownTimeout pattern.
type processStream struct {
	stdout io.ReadCloser
	cmd    *exec.Cmd
}

const gracefulShutdownTimeout = 3 * time.Second

func (s *ProcessSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if len(s.Command) == 0 {
		return nil, fmt.Errorf("tracer: no command configured")
	}
	cmd := exec.Command(s.Command[0], s.Command[1:]...)
	// CREATE_NEW_PROCESS_GROUP puts the tracer in its own console process
	// group so the CTRL_BREAK_EVENT Close sends it below doesn't also land
	// on rcawatch itself.
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("tracer: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("tracer: start %q: %w", s.Command[0], err)
	}
	if s.OnStart != nil {
		s.OnStart(int32(cmd.Process.Pid))
	}
	return &processStream{stdout: stdout, cmd: cmd}, nil
}

func (p *processStream) Read(b []byte) (int, error) { return p.stdout.Read(b) }

func (p *processStream) Close() error {
	if p.cmd.Process == nil {
		return nil
	}
	_ = windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(p.cmd.Process.Pid))
	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(gracefulShutdownTimeout):
		_ = p.cmd.Process.Kill()
		<-done
		return fmt.Errorf("tracer: killed after graceful shutdown timeout")
	}
}

// FileSource reads a previously captured line-delimited event file, used by
// the replay/offline mode (SPEC_FULL.md §5).
type FileSource struct {
	Path string
}

func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("tracer: open replay file %q: %w", s.Path, err)
	}
	return f, nil
}

// newScanner wraps an io.Reader with a line scanner sized for long event
// payloads (some providers emit large stack/payload blobs).
func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return sc
}
