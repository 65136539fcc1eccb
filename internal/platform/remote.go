package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/opd-ai/go-cpustat/internal/monitor"
)

// RemoteConfig specifies connection parameters for reading counters from a
// remote Linux host over SSH.
type RemoteConfig struct {
	// Host is the hostname or IP address of the remote system.
	Host string

	// Port is the SSH port (default: 22).
	Port int

	// User is the SSH username.
	User string

	// AuthMethod specifies how to authenticate.
	AuthMethod AuthMethod

	// KnownHostsPath is the known_hosts file used to verify the host key.
	// Defaults to ~/.ssh/known_hosts.
	KnownHostsPath string

	// InsecureIgnoreHostKey disables host key verification.
	InsecureIgnoreHostKey bool

	// HostKeyCallback overrides KnownHostsPath and InsecureIgnoreHostKey.
	HostKeyCallback ssh.HostKeyCallback

	// ProcRoot is the proc mount point on the remote host (default: /proc).
	ProcRoot string

	// CommandTimeout bounds each remote read (default: 5s).
	CommandTimeout time.Duration

	// DialTimeout bounds the TCP connect and SSH handshake (default: 10s).
	DialTimeout time.Duration
}

// AuthMethod defines SSH authentication methods.
type AuthMethod interface {
	isAuthMethod()
}

// PasswordAuth authenticates using a password.
type PasswordAuth struct {
	Password string
}

func (PasswordAuth) isAuthMethod() {}

// KeyAuth authenticates using an SSH private key.
type KeyAuth struct {
	PrivateKeyPath string
	Passphrase     string // optional, for encrypted keys
}

func (KeyAuth) isAuthMethod() {}

// AgentAuth authenticates using the SSH agent.
type AgentAuth struct{}

func (AgentAuth) isAuthMethod() {}

// commandRunner executes a shell command and returns its standard output.
type commandRunner interface {
	Run(ctx context.Context, cmd string) ([]byte, error)
}

// RemoteSource is a CounterSource that reads /proc files on a remote host
// by running cat over SSH. The remote host needs nothing installed besides
// an SSH server and a POSIX shell.
type RemoteSource struct {
	*monitor.ProcSource

	config RemoteConfig
	mu     sync.RWMutex
	client *ssh.Client
}

// NewRemoteSource validates config and returns an unconnected source.
// Call Connect before reading.
func NewRemoteSource(config RemoteConfig) (*RemoteSource, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if config.User == "" {
		return nil, fmt.Errorf("user is required")
	}
	if config.AuthMethod == nil {
		return nil, fmt.Errorf("authentication method is required")
	}

	if config.Port == 0 {
		config.Port = 22
	}
	if config.ProcRoot == "" {
		config.ProcRoot = monitor.DefaultProcRoot
	}
	if !validatePath(config.ProcRoot) {
		return nil, fmt.Errorf("invalid proc root %q", config.ProcRoot)
	}
	if config.CommandTimeout == 0 {
		config.CommandTimeout = 5 * time.Second
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 10 * time.Second
	}

	s := &RemoteSource{config: config}
	s.ProcSource = monitor.NewOpenerSource(&remoteOpener{
		runner:  s,
		root:    config.ProcRoot,
		timeout: config.CommandTimeout,
	}, monitor.BackendRemote)
	return s, nil
}

// Address returns the host:port the source connects to.
func (s *RemoteSource) Address() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Connect dials the remote host and authenticates.
func (s *RemoteSource) Connect(ctx context.Context) error {
	sshConfig, err := s.buildSSHConfig()
	if err != nil {
		return fmt.Errorf("failed to build SSH config: %w", err)
	}

	addr := s.Address()
	dialer := net.Dialer{Timeout: s.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	// The handshake is bounded by a deadline on the raw connection, lifted
	// once the client is established.
	_ = conn.SetDeadline(time.Now().Add(s.config.DialTimeout))
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SSH handshake with %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	s.mu.Lock()
	if s.client != nil {
		s.client.Close()
	}
	s.client = ssh.NewClient(c, chans, reqs)
	s.mu.Unlock()
	return nil
}

func (s *RemoteSource) buildSSHConfig() (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	switch auth := s.config.AuthMethod.(type) {
	case PasswordAuth:
		authMethods = append(authMethods, ssh.Password(auth.Password))
	case KeyAuth:
		key, err := os.ReadFile(auth.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		var signer ssh.Signer
		if auth.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(auth.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	case AgentAuth:
		socket := os.Getenv("SSH_AUTH_SOCK")
		if socket == "" {
			return nil, fmt.Errorf("SSH_AUTH_SOCK not set")
		}
		// Defer the agent connection until the handshake needs it.
		authMethods = append(authMethods, ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
			agentConn, err := net.Dial("unix", socket)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to SSH agent: %w", err)
			}
			defer agentConn.Close()

			signers, err := agent.NewClient(agentConn).Signers()
			if err != nil {
				return nil, fmt.Errorf("failed to get signers from SSH agent: %w", err)
			}
			return signers, nil
		}))
	default:
		return nil, fmt.Errorf("unsupported auth method type: %T", auth)
	}

	hostKeyCallback, err := s.buildHostKeyCallback()
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            s.config.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         s.config.DialTimeout,
	}, nil
}

// buildHostKeyCallback picks host key verification: an explicit callback,
// then the insecure opt-out, then a known_hosts file.
func (s *RemoteSource) buildHostKeyCallback() (ssh.HostKeyCallback, error) {
	if s.config.HostKeyCallback != nil {
		return s.config.HostKeyCallback, nil
	}
	if s.config.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	knownHostsPath := s.config.KnownHostsPath
	if knownHostsPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating known_hosts: %w", err)
		}
		knownHostsPath = path.Join(home, ".ssh", "known_hosts")
	}
	if _, err := os.Stat(knownHostsPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("known_hosts file not found: %s", knownHostsPath)
		}
		return nil, fmt.Errorf("accessing known_hosts %s: %w", knownHostsPath, err)
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("parsing known_hosts %s: %w", knownHostsPath, err)
	}
	return callback, nil
}

// Run executes cmd in a new session and returns its standard output.
// The remote process is killed if ctx ends first.
func (s *RemoteSource) Run(ctx context.Context, cmd string) ([]byte, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()

	if client == nil {
		return nil, fmt.Errorf("SSH client not connected")
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("command failed: %w (stderr: %s)", err, bytes.TrimSpace(stderr.Bytes()))
		}
		return stdout.Bytes(), nil
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return nil, ctx.Err()
	}
}

// Close closes the SSH connection. The source can be reconnected with
// Connect.
func (s *RemoteSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		err := s.client.Close()
		s.client = nil
		return err
	}
	return nil
}

// remoteOpener implements monitor.Opener by catting files on the remote
// host. Each Open is a separate remote command, so two reads of the same
// file observe the host's counters at two different moments.
type remoteOpener struct {
	runner  commandRunner
	root    string
	timeout time.Duration
}

func (o *remoteOpener) Open(ctx context.Context, file monitor.File) (io.ReadCloser, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	out, err := o.runner.Run(ctx, "cat "+shellEscape(path.Join(o.root, string(file))))
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(out)), nil
}
