package email

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"
)

func TestBuildMessageHeaders(t *testing.T) {
	msg := buildMessage("from@x", "to@x", "Booking\r\nBcc: evil@x", "hello")
	if !strings.HasPrefix(msg, "From: from@x\r\nTo: to@x\r\nSubject: Booking  Bcc: evil@x\r\n") {
		t.Fatalf("unexpected headers:\n%q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nhello\r\n") {
		t.Fatalf("unexpected body:\n%q", msg)
	}
}

func TestBuildMessageSanitizesAddresses(t *testing.T) {
	msg := buildMessage("from@x\r\nBcc: a@x", "to@x\nBcc: b@x", "Booking", "hello")
	headers := msg[:strings.Index(msg, "\r\n\r\n")]
	for _, line := range strings.Split(headers, "\r\n") {
		if strings.HasPrefix(line, "Bcc:") {
			t.Fatalf("injected header line in:\n%q", msg)
		}
	}
	if !strings.HasPrefix(msg, "From: from@x  Bcc: a@x\r\nTo: to@x Bcc: b@x\r\n") {
		t.Fatalf("unexpected headers:\n%q", msg)
	}
}

// fakeSMTP speaks just enough SMTP to accept one message.
func fakeSMTP(t *testing.T, got chan<- string) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = lis.Close() })

	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		write := func(s string) { _, _ = io.WriteString(conn, s+"\r\n") }

		write("220 fake ESMTP")
		var data strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					got <- data.String()
					write("250 queued")
					continue
				}
				data.WriteString(line)
				continue
			}
			switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				write("250 fake")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				write("250 ok")
			case cmd == "DATA":
				inData = true
				write("354 go ahead")
			case cmd == "QUIT":
				write("221 bye")
				return
			default:
				write("250 ok")
			}
		}
	}()
	return lis.Addr().String()
}

func TestSMTPSenderSend(t *testing.T) {
	got := make(chan string, 1)
	host, port, _ := net.SplitHostPort(fakeSMTP(t, got))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := NewSMTPSender(host, port, "agenda@x").Send(ctx, "ana@x", "Booking created", "see you"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case msg := <-got:
		if !strings.Contains(msg, "Subject: Booking created") || !strings.Contains(msg, "see you") {
			t.Fatalf("unexpected message:\n%s", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}

func TestLogSender(t *testing.T) {
	var buf strings.Builder
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))
	if err := s.Send(context.Background(), "ana@x", "Booking created", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "ana@x") {
		t.Fatalf("expected recipient in log, got %q", buf.String())
	}
}
