package ovium

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// An Executor runs a single command against a single node and
// normalizes the result into an SshOutcome. The handler's fan-out
// calls one of these per target node, in its own goroutine. Tests
// inject a stub in place of ExecuteCommand so they never need a real
// sshd.
type Executor func(node Node, command string) SshOutcome

// ExecuteCommand is the default Executor. It dials, handshakes,
// authenticates against the local ssh-agent, execs the command, and
// drains stdout/stderr. Any failure along the way folds into a
// TransportFailure rather than an error, since a failing node must
// never abort its siblings' fan-out.
//
// Authentication is agent-only; the daemon never reads or holds a
// private key of its own. Host keys are not verified yet.
func ExecuteCommand(node Node, command string) SshOutcome {
	addr := fmt.Sprintf("%s:%d", node.IP, node.Port)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return Transport(fmt.Sprintf("dial %s: %s", addr, err))
	}

	signers, agentConn, err := agentSigners()
	if err != nil {
		conn.Close()
		return Transport(fmt.Sprintf("ssh-agent: %s", err))
	}
	if agentConn != nil {
		defer agentConn.Close()
	}

	config := &ssh.ClientConfig{
		User:            node.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signers...)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return Transport(fmt.Sprintf("handshake with %s: %s", addr, err))
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return Transport(fmt.Sprintf("open session on %s: %s", addr, err))
	}
	defer session.Close()

	stdoutPipe, err := session.StdoutPipe()
	if err != nil {
		return Transport(fmt.Sprintf("attach stdout on %s: %s", addr, err))
	}
	stderrPipe, err := session.StderrPipe()
	if err != nil {
		return Transport(fmt.Sprintf("attach stderr on %s: %s", addr, err))
	}

	if err := session.Start(command); err != nil {
		return Transport(fmt.Sprintf("exec on %s: %s", addr, err))
	}

	var stdout, stderr bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go drain(&wg, stdoutPipe, &stdout)
	go drain(&wg, stderrPipe, &stderr)
	wg.Wait()

	var exitStatus int32
	if err := session.Wait(); err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			exitStatus = int32(exitErr.ExitStatus())
		} else {
			return Transport(fmt.Sprintf("channel wait on %s: %s", addr, err))
		}
	}

	return Success(SshSuccess{
		Stdout:     optionalString(stdout.String()),
		Stderr:     optionalString(stderr.String()),
		ExitStatus: exitStatus,
	})
}

// drain copies a single remote stream to completion and signals wg
// when exhausted. Broken out so stdout and stderr can be read
// concurrently without one blocking the other on a full pipe buffer.
func drain(wg *sync.WaitGroup, r io.Reader, buf *bytes.Buffer) {
	defer wg.Done()
	io.Copy(buf, r)
}

// agentSigners opens a connection to the local ssh-agent (by
// SSH_AUTH_SOCK) and lists its signers. The caller owns closing the
// returned net.Conn.
func agentSigners() ([]ssh.Signer, net.Conn, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, nil, fmt.Errorf("SSH_AUTH_SOCK is not set; no ssh-agent available")
	}

	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to ssh-agent at %s: %s", sock, err)
	}

	signers, err := agent.NewClient(conn).Signers()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("list ssh-agent identities: %s", err)
	}
	if len(signers) == 0 {
		conn.Close()
		return nil, nil, fmt.Errorf("ssh-agent holds no identities")
	}

	return signers, conn, nil
}
