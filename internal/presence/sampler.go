package presence

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Sampler reports the identifier of the network the machine is attached to.
// An empty identifier means not connected.
type Sampler interface {
	CurrentNetworkIdentifier(ctx context.Context) (string, error)
}

// Present compares an observed identifier with the expected one,
// ignoring case and surrounding quotes.
func Present(observed, expected string) bool {
	o := normalize(observed)
	return o != "" && strings.EqualFold(o, normalize(expected))
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

// StaticSampler always reports the same identifier.
type StaticSampler struct {
	Network string
	Err     error
}

func (s StaticSampler) CurrentNetworkIdentifier(context.Context) (string, error) {
	return s.Network, s.Err
}

// RunFunc executes a command and returns its standard output.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandSampler reads the Wi-Fi SSID with iwgetid and falls back to nmcli.
type CommandSampler struct {
	Run RunFunc
}

func NewCommandSampler() *CommandSampler {
	return &CommandSampler{Run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

var errNoTool = errors.New("presence: neither iwgetid nor nmcli available")

func (s *CommandSampler) CurrentNetworkIdentifier(ctx context.Context) (string, error) {
	run := s.Run
	if run == nil {
		run = runCommand
	}

	out, iwErr := run(ctx, "iwgetid", "-r")
	if iwErr == nil {
		return normalize(string(out)), nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	out, nmErr := run(ctx, "nmcli", "-t", "-f", "active,ssid", "dev", "wifi")
	if nmErr != nil {
		// iwgetid exits non-zero when not associated; only a missing
		// tool on both paths is an error.
		if isNotFound(iwErr) && isNotFound(nmErr) {
			return "", errNoTool
		}
		if !isNotFound(iwErr) {
			return "", nil
		}
		return "", nmErr
	}
	return parseNmcli(out), nil
}

// parseNmcli picks the active SSID from `nmcli -t -f active,ssid` output.
func parseNmcli(out []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		active, ssid, ok := strings.Cut(line, ":")
		if ok && (active == "yes" || active == "ja") {
			return normalize(strings.ReplaceAll(ssid, `\:`, ":"))
		}
	}
	return ""
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
