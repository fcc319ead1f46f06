package mailer

import (
	"context"
	"io"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeRelay is a minimal SMTP server on a loopback port. A silent relay
// accepts connections and never greets.
type fakeRelay struct {
	ln     net.Listener
	silent bool

	wg    sync.WaitGroup
	mu    sync.Mutex
	conns []net.Conn
	log   []string
	data  string
}

func startFakeRelay(t *testing.T, silent bool) *fakeRelay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	r := &fakeRelay{ln: ln, silent: silent}
	r.wg.Add(1)
	go r.acceptLoop()

	t.Cleanup(func() {
		_ = ln.Close()
		r.mu.Lock()
		for _, c := range r.conns {
			_ = c.Close()
		}
		r.mu.Unlock()
		r.wg.Wait()
	})
	return r
}

func (r *fakeRelay) port() string {
	return strings.TrimPrefix(r.ln.Addr().String(), "127.0.0.1:")
}

func (r *fakeRelay) acceptLoop() {
	defer r.wg.Done()
	for {
		conn, err := r.ln.Accept()
		if err != nil {
			return
		}
		r.mu.Lock()
		r.conns = append(r.conns, conn)
		r.mu.Unlock()

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer conn.Close()
			if r.silent {
				_, _ = io.Copy(io.Discard, conn)
				return
			}
			r.serve(textproto.NewConn(conn))
		}()
	}
}

func (r *fakeRelay) serve(tp *textproto.Conn) {
	_ = tp.PrintfLine("220 127.0.0.1 ESMTP ready")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		r.mu.Lock()
		r.log = append(r.log, line)
		r.mu.Unlock()

		verb, _, _ := strings.Cut(line, " ")
		switch strings.ToUpper(verb) {
		case "EHLO":
			_ = tp.PrintfLine("250-127.0.0.1")
			_ = tp.PrintfLine("250 AUTH PLAIN")
		case "AUTH":
			_ = tp.PrintfLine("235 2.7.0 Authentication successful")
		case "MAIL", "RCPT":
			_ = tp.PrintfLine("250 OK")
		case "DATA":
			_ = tp.PrintfLine("354 Go ahead")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			r.mu.Lock()
			r.data = string(data)
			r.mu.Unlock()
			_ = tp.PrintfLine("250 OK queued")
		case "QUIT":
			_ = tp.PrintfLine("221 Bye")
			return
		default:
			_ = tp.PrintfLine("502 Command not implemented")
		}
	}
}

func (r *fakeRelay) received() ([]string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...), r.data
}

func TestSMTPMailer_SendMail(t *testing.T) {
	relay := startFakeRelay(t, false)
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: relay.port(), Account: "noreply@example.com", Password: "secret"})
	m.nowTime = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	ok, err := m.SendMail(context.Background(), Message{To: "test@example.com", Subject: "Confirm", Body: "line one\nline two"})
	require.NoError(t, err)
	require.True(t, ok)

	commands, data := relay.received()
	require.Contains(t, commands, "MAIL FROM:<noreply@example.com>")
	require.Contains(t, commands, "RCPT TO:<test@example.com>")
	require.Contains(t, commands, "QUIT")
	require.True(t, strings.HasPrefix(commands[1], "AUTH PLAIN "), commands)
	require.Contains(t, data, "Subject: Confirm\n")
	require.True(t, strings.HasSuffix(data, "\nline one\nline two\n"), data)
}

func TestSMTPMailer_Compose(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: "587", From: "noreply@example.com"})
	m.nowTime = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	body := string(m.compose(Message{To: "test@example.com", Subject: "Confirm", Body: "line one\nline two"}))
	require.True(t, strings.HasPrefix(body, "From: noreply@example.com\r\nTo: test@example.com\r\nSubject: Confirm\r\n"))
	require.Contains(t, body, "Date: Fri, 01 Mar 2024 12:00:00 +0000\r\n")
	require.True(t, strings.HasSuffix(body, "\r\n\r\nline one\r\nline two"))
}

func TestSMTPMailer_Failures(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closedPort := strings.TrimPrefix(ln.Addr().String(), "127.0.0.1:")
	require.NoError(t, ln.Close())

	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: closedPort, From: "noreply@example.com"})

	ok, err := m.SendMail(context.Background(), Message{To: "test@example.com", Subject: "x"})
	require.False(t, ok)
	require.ErrorContains(t, err, "dial relay")

	ok, err = m.SendMail(context.Background(), Message{To: "test@example.com\r\nBcc: evil@example.com", Subject: "x"})
	require.False(t, ok)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err = m.SendMail(ctx, Message{To: "test@example.com"})
	require.False(t, ok)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSMTPMailer_StalledRelayHonoursDeadline(t *testing.T) {
	relay := startFakeRelay(t, true)
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: relay.port(), From: "noreply@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	ok, err := m.SendMail(ctx, Message{To: "test@example.com", Subject: "x"})
	require.False(t, ok)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestSMTPMailer_StalledRelayHonoursCancel(t *testing.T) {
	relay := startFakeRelay(t, true)
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: relay.port(), From: "noreply@example.com"})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err := m.SendMail(ctx, Message{To: "test@example.com", Subject: "x"})
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestDispatcher_CloseIsBoundedByStalledRelay(t *testing.T) {
	relay := startFakeRelay(t, true)
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: relay.port(), From: "noreply@example.com"})

	d, err := NewDispatcher(m, WithSendTimeout(time.Minute), WithRetries(3, 10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(Message{To: "test@example.com", Subject: "x"}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = d.Close(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 2*time.Second)
}
