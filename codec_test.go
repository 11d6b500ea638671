package ovium_test

import (
	"bufio"
	"bytes"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/jhunt/ovium"
)

var _ = Describe("codec", func() {
	Context("requests", func() {
		It("round-trips a Cmd request", func() {
			req := ovium.CmdReq([]string{"alpha", "beta"}, "echo hi")

			frame, err := ovium.EncodeRequest(req)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(frame[len(frame)-1]).Should(Equal(byte('\n')))

			got, err := ovium.DecodeRequest(frame)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(got).Should(Equal(req))
		})

		It("round-trips embedded newlines in the command string", func() {
			req := ovium.CmdReq([]string{"alpha"}, "echo one\necho two")

			frame, err := ovium.EncodeRequest(req)
			Ω(err).ShouldNot(HaveOccurred())

			// exactly one raw LF in the frame: the terminator
			Ω(bytes.Count(frame, []byte{'\n'})).Should(Equal(1))

			got, err := ovium.DecodeRequest(frame)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(got.Cmd.Command).Should(Equal("echo one\necho two"))
		})

		It("rejects malformed bytes without panicking", func() {
			_, err := ovium.DecodeRequest([]byte("not json at all\n"))
			Ω(err).Should(HaveOccurred())
			Ω(ovium.IsKind(err, ovium.ErrDecode)).Should(BeTrue())
		})

		It("rejects an unrecognized request kind", func() {
			_, err := ovium.DecodeRequest([]byte(`{"kind":"reboot-the-universe"}` + "\n"))
			Ω(err).Should(HaveOccurred())
			Ω(ovium.IsKind(err, ovium.ErrDecode)).Should(BeTrue())
		})

		It("tolerates a frame with or without its trailing terminator", func() {
			req := ovium.CmdReq([]string{"alpha"}, "true")
			frame, _ := ovium.EncodeRequest(req)

			withLF, err1 := ovium.DecodeRequest(frame)
			withoutLF, err2 := ovium.DecodeRequest(bytes.TrimSuffix(frame, []byte{'\n'}))

			Ω(err1).ShouldNot(HaveOccurred())
			Ω(err2).ShouldNot(HaveOccurred())
			Ω(withLF).Should(Equal(withoutLF))
		})
	})

	Context("responses", func() {
		It("round-trips a Cmd response with embedded-newline output", func() {
			resp := ovium.CmdOK([]ovium.CmdReturn{
				{
					NodeName: "alpha",
					Data: ovium.Success(ovium.SshSuccess{
						Stdout:     strptr("line one\nline two\n"),
						ExitStatus: 0,
					}),
				},
				{
					NodeName: "beta",
					Data:     ovium.Transport("dial 10.0.0.2:22: connection refused"),
				},
			})

			frame, err := ovium.EncodeResponse(resp)
			Ω(err).ShouldNot(HaveOccurred())

			got, err := ovium.DecodeResponse(frame)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(got).Should(Equal(resp))
		})

		It("round-trips an Error response", func() {
			resp := ovium.UnknownNodesResponse([]string{"gamma", "delta"})

			frame, err := ovium.EncodeResponse(resp)
			Ω(err).ShouldNot(HaveOccurred())

			got, err := ovium.DecodeResponse(frame)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(got).Should(Equal(resp))
		})

		It("rejects an error response missing its payload", func() {
			_, err := ovium.DecodeResponse([]byte(`{"kind":"error"}` + "\n"))
			Ω(err).Should(HaveOccurred())
		})
	})

	Context("frame reading", func() {
		It("reads exactly one frame and leaves the rest of the stream intact", func() {
			reqA := ovium.CmdReq([]string{"alpha"}, "one")
			reqB := ovium.CmdReq([]string{"beta"}, "two")
			frameA, _ := ovium.EncodeRequest(reqA)
			frameB, _ := ovium.EncodeRequest(reqB)

			r := bufio.NewReader(bytes.NewReader(append(append([]byte{}, frameA...), frameB...)))

			got1, err := ovium.ReadFrame(r)
			Ω(err).ShouldNot(HaveOccurred())
			decoded1, err := ovium.DecodeRequest(got1)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(decoded1).Should(Equal(reqA))

			got2, err := ovium.ReadFrame(r)
			Ω(err).ShouldNot(HaveOccurred())
			decoded2, err := ovium.DecodeRequest(got2)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(decoded2).Should(Equal(reqB))
		})
	})
})

func strptr(s string) *string { return &s }
