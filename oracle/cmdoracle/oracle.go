package cmdoracle

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"alma.local/shatb/oracle"
	"github.com/sirupsen/logrus"
)

// DefaultCommand is the external hasher used when none is configured.
const DefaultCommand = "sha256sum"

// Oracle hashes messages with an external command that reads the message
// on stdin and prints the hex digest as the first field of its output.
type Oracle struct {
	path string
	args []string
	log  logrus.FieldLogger
	mu   sync.Mutex
}

// New resolves name on PATH and returns an oracle that runs it with args.
func New(name string, args ...string) (*Oracle, error) {
	if name == "" {
		name = DefaultCommand
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("cmdoracle: lookup %s: %w", name, err)
	}
	return &Oracle{
		path: path,
		args: args,
		log:  logrus.StandardLogger().WithField("oracle", name),
	}, nil
}

// Digest runs the external command over msg.
func (o *Oracle) Digest(ctx context.Context, msg []byte) (oracle.Digest, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cmd := exec.CommandContext(ctx, o.path, o.args...)
	cmd.Stdin = bytes.NewReader(msg)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return oracle.Digest{}, fmt.Errorf("cmdoracle: run %s: %w (stderr: %s)", o.path, err, strings.TrimSpace(stderr.String()))
	}
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return oracle.Digest{}, fmt.Errorf("cmdoracle: empty output from %s", o.path)
	}
	return oracle.ParseDigest(fields[0])
}

// CrossCheck confirms that the external command and oracle.Reference
// agree on msg.
func (o *Oracle) CrossCheck(ctx context.Context, msg []byte) error {
	ext, err := o.Digest(ctx, msg)
	if err != nil {
		return err
	}
	ref := oracle.Reference(msg)
	if ext != ref {
		o.log.WithFields(logrus.Fields{
			"external":  ext.Hex(),
			"reference": ref.Hex(),
		}).Error("reference disagrees with external hasher")
		return fmt.Errorf("%w: external %s, reference %s", oracle.ErrDigestMismatch, ext, ref)
	}
	return nil
}
