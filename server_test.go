package ovium_test

import (
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/jhunt/ovium"
)

var _ = Describe("server", func() {
	var (
		dir  string
		sock string
		cfg  *ovium.ServerConfig
	)

	BeforeEach(func() {
		var err error
		dir, err = ioutil.TempDir("", "ovium-server")
		Ω(err).ShouldNot(HaveOccurred())
		writeConfig(dir, `
[nodes.alpha]
ip = "10.0.0.1"
`)
		cfg, err = ovium.LoadConfig(dir)
		Ω(err).ShouldNot(HaveOccurred())

		sock = filepath.Join(dir, "ovium.sock")
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("removes the socket file once SIGINT drains it to a stop", func() {
		s := &ovium.Server{
			SocketPath: sock,
			Config:     cfg,
			Executor: func(n ovium.Node, cmd string) ovium.SshOutcome {
				return ovium.Success(ovium.SshSuccess{ExitStatus: 0})
			},
		}

		Ω(s.Listen()).Should(Succeed())
		Ω(sock).Should(BeAnExistingFile())

		done := make(chan error, 1)
		go func() { done <- s.Serve() }()

		// confirm the listener is actually live before tearing it down
		conn, err := net.DialTimeout("unix", sock, time.Second)
		Ω(err).ShouldNot(HaveOccurred())
		conn.Close()

		Ω(syscall.Kill(os.Getpid(), syscall.SIGINT)).Should(Succeed())

		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
		Ω(sock).ShouldNot(BeAnExistingFile())
	})

	It("removes the socket file once SIGTERM drains it to a stop", func() {
		s := &ovium.Server{
			SocketPath: sock,
			Config:     cfg,
		}

		Ω(s.Listen()).Should(Succeed())

		done := make(chan error, 1)
		go func() { done <- s.Serve() }()

		conn, err := net.DialTimeout("unix", sock, time.Second)
		Ω(err).ShouldNot(HaveOccurred())
		conn.Close()

		Ω(syscall.Kill(os.Getpid(), syscall.SIGTERM)).Should(Succeed())

		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
		Ω(sock).ShouldNot(BeAnExistingFile())
	})

	It("removes a stale socket file left behind before Listen binds", func() {
		Ω(ioutil.WriteFile(sock, []byte("stale"), 0644)).Should(Succeed())

		s := &ovium.Server{SocketPath: sock, Config: cfg}
		Ω(s.Listen()).Should(Succeed())
		Ω(sock).Should(BeAnExistingFile())
	})
})
