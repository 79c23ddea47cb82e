package server

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BinaryCat17/RapidServer/internal/hub"
	"github.com/BinaryCat17/RapidServer/pkg/controlplane/store"
)

// fakeSock records frames written to it and exposes them on a channel so
// tests can wait for the writer goroutine.
type fakeSock struct {
	mu     sync.Mutex
	closed bool
	ch     chan string
}

func newFakeSock() *fakeSock {
	return &fakeSock{ch: make(chan string, 64)}
}

func (f *fakeSock) WriteMessage(_ int, data []byte) error {
	f.ch <- string(data)
	return nil
}

func (f *fakeSock) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSock) recv(t *testing.T) string {
	t.Helper()
	select {
	case frame := <-f.ch:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound frame")
		return ""
	}
}

func (f *fakeSock) expectNothing(t *testing.T) {
	t.Helper()
	select {
	case frame := <-f.ch:
		t.Fatalf("unexpected outbound frame %q", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

type testRig struct {
	core   *Core
	store  *store.GORMStore
	broker *hub.Broker
}

func newRig(t *testing.T) *testRig {
	t.Helper()

	st, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if _, err := st.EnsureDefaultGroups(context.Background()); err != nil {
		t.Fatalf("failed to provision groups: %v", err)
	}

	broker := hub.New()
	return &testRig{
		core:   NewCore(st, broker),
		store:  st,
		broker: broker,
	}
}

// dial opens a connection against the core, as the transport would.
func (r *testRig) dial(t *testing.T) (*Conn, *fakeSock) {
	t.Helper()
	sock := newFakeSock()
	conn := NewConn(sock, "test")
	r.core.HandleOpen(conn)
	t.Cleanup(conn.Close)
	return conn, sock
}

func (r *testRig) send(c *Conn, frame string) {
	r.core.HandleMessage(context.Background(), c, []byte(frame))
}

// exchange sends one frame and returns the single reply for it.
func (r *testRig) exchange(t *testing.T, c *Conn, sock *fakeSock, frame string) string {
	t.Helper()
	r.send(c, frame)
	return sock.recv(t)
}

func expectReply(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
}

func expectPrefix(t *testing.T, got, wantPrefix string) {
	t.Helper()
	if !strings.HasPrefix(got, wantPrefix) {
		t.Errorf("reply = %q, want prefix %q", got, wantPrefix)
	}
}

func TestNewUser(t *testing.T) {
	rig := newRig(t)

	t.Run("creates account and signs in", func(t *testing.T) {
		conn, sock := rig.dial(t)
		got := rig.exchange(t, conn, sock, "new_user vasya 123")
		expectReply(t, got, "sign_in success 1")
		if !conn.SignedIn() {
			t.Error("connection not signed in after new_user")
		}
	})

	t.Run("duplicate name is rejected", func(t *testing.T) {
		conn, sock := rig.dial(t)
		got := rig.exchange(t, conn, sock, "new_user vasya otherpass")
		expectReply(t, got, "new_user error User already exist!")
		if conn.SignedIn() {
			t.Error("connection signed in after failed new_user")
		}
	})

	t.Run("rejected while signed in", func(t *testing.T) {
		conn, sock := rig.dial(t)
		rig.exchange(t, conn, sock, "sign_in vasya 123")
		got := rig.exchange(t, conn, sock, "new_user petya 123")
		expectReply(t, got, "new_user error Already signed in!")
	})
}

func TestSignIn(t *testing.T) {
	rig := newRig(t)
	seed, seedSock := rig.dial(t)
	expectPrefix(t, rig.exchange(t, seed, seedSock, "new_user vasya 123"), "sign_in success")

	t.Run("wrong password", func(t *testing.T) {
		conn, sock := rig.dial(t)
		got := rig.exchange(t, conn, sock, "sign_in vasya wrong")
		expectReply(t, got, "sign_in error Incorrect login or password")
	})

	t.Run("unknown user", func(t *testing.T) {
		conn, sock := rig.dial(t)
		got := rig.exchange(t, conn, sock, "sign_in nobody 123")
		expectReply(t, got, "sign_in error Incorrect login or password")
	})

	t.Run("second sign_in on same socket is rejected", func(t *testing.T) {
		conn, sock := rig.dial(t)
		first := rig.exchange(t, conn, sock, "sign_in vasya 123")
		expectPrefix(t, first, "sign_in success")
		got := rig.exchange(t, conn, sock, "sign_in vasya 123")
		expectReply(t, got, "sign_in error Already signed in!")
	})

	t.Run("each sign_in issues a fresh session", func(t *testing.T) {
		a, aSock := rig.dial(t)
		b, bSock := rig.dial(t)
		ra := rig.exchange(t, a, aSock, "sign_in vasya 123")
		rb := rig.exchange(t, b, bSock, "sign_in vasya 123")
		if ra == rb {
			t.Errorf("two sign_ins produced the same session: %q", ra)
		}
	})
}

func TestSignOut(t *testing.T) {
	rig := newRig(t)

	t.Run("requires sign_in", func(t *testing.T) {
		conn, sock := rig.dial(t)
		got := rig.exchange(t, conn, sock, "sign_out")
		expectReply(t, got, "sign_out error Not signed in!")
	})

	t.Run("clears the session", func(t *testing.T) {
		conn, sock := rig.dial(t)
		rig.exchange(t, conn, sock, "new_user olya 123")
		got := rig.exchange(t, conn, sock, "sign_out")
		expectReply(t, got, "sign_out success")
		if conn.SignedIn() {
			t.Error("connection still signed in after sign_out")
		}

		sessions, err := rig.store.ListSessions(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(sessions) != 0 {
			t.Errorf("expected no live sessions, got %d", len(sessions))
		}
	})

	t.Run("detaches an attached farm", func(t *testing.T) {
		conn, sock := rig.dial(t)
		rig.exchange(t, conn, sock, "new_user dima 123")
		expectPrefix(t, rig.exchange(t, conn, sock, "new_farm greens 123"), "connect_farm success")

		got := rig.exchange(t, conn, sock, "sign_out")
		expectReply(t, got, "sign_out success")
		if conn.FarmAttached() {
			t.Error("farm still attached after sign_out")
		}
		sessions, err := rig.store.ListSessions(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(sessions) != 0 {
			t.Errorf("expected no live sessions, got %d", len(sessions))
		}
	})
}

func TestFarmLifecycle(t *testing.T) {
	rig := newRig(t)
	conn, sock := rig.dial(t)
	expectReply(t, rig.exchange(t, conn, sock, "new_user vasya 123"), "sign_in success 1")

	t.Run("new_farm provisions and attaches", func(t *testing.T) {
		got := rig.exchange(t, conn, sock, "new_farm myfarm 123")
		expectReply(t, got, "connect_farm success 2")
		if !conn.FarmAttached() {
			t.Error("farm not attached after new_farm")
		}
	})

	t.Run("second farm while attached is rejected", func(t *testing.T) {
		got := rig.exchange(t, conn, sock, "new_farm other 123")
		expectReply(t, got, "new_farm error Farm already connected!")
	})

	t.Run("connect_farm while attached is rejected", func(t *testing.T) {
		got := rig.exchange(t, conn, sock, "connect_farm myfarm 123")
		expectReply(t, got, "connect_farm error Farm already connected!")
	})

	t.Run("disconnect_farm releases the session", func(t *testing.T) {
		got := rig.exchange(t, conn, sock, "disconnect_farm")
		expectReply(t, got, "disconnect_farm success")
		if conn.FarmAttached() {
			t.Error("farm still attached after disconnect_farm")
		}
	})

	t.Run("disconnect_farm without a farm is rejected", func(t *testing.T) {
		got := rig.exchange(t, conn, sock, "disconnect_farm")
		expectReply(t, got, "disconnect_farm error Farm is not connected!")
	})

	t.Run("reconnect issues a fresh farm session", func(t *testing.T) {
		got := rig.exchange(t, conn, sock, "connect_farm myfarm 123")
		expectPrefix(t, got, "connect_farm success")
		if !conn.FarmAttached() {
			t.Error("farm not attached after connect_farm")
		}
	})

	t.Run("duplicate farm name is rejected", func(t *testing.T) {
		other, otherSock := rig.dial(t)
		rig.exchange(t, other, otherSock, "new_user petya 123")
		got := rig.exchange(t, other, otherSock, "new_farm myfarm 123")
		expectReply(t, got, "new_farm error Farm already exist!")
	})
}

func TestConnectFarmChecks(t *testing.T) {
	rig := newRig(t)

	t.Run("requires sign_in", func(t *testing.T) {
		conn, sock := rig.dial(t)
		got := rig.exchange(t, conn, sock, "connect_farm myfarm 123")
		expectReply(t, got, "connect_farm error Not signed in!")
	})

	t.Run("wrong farm password", func(t *testing.T) {
		owner, ownerSock := rig.dial(t)
		rig.exchange(t, owner, ownerSock, "new_user vasya 123")
		expectPrefix(t, rig.exchange(t, owner, ownerSock, "new_farm myfarm secret"), "connect_farm success")
		rig.exchange(t, owner, ownerSock, "disconnect_farm")

		got := rig.exchange(t, owner, ownerSock, "connect_farm myfarm wrong")
		expectReply(t, got, "connect_farm error Incorrect login or password")
	})

	t.Run("plain account in the farm namespace is not a farm", func(t *testing.T) {
		if _, err := rig.store.CreateUser(context.Background(), "farm_impostor", "123"); err != nil {
			t.Fatal(err)
		}
		conn, sock := rig.dial(t)
		rig.exchange(t, conn, sock, "new_user katya 123")
		got := rig.exchange(t, conn, sock, "connect_farm impostor 123")
		expectReply(t, got, "connect_farm error It is not farm!")
	})

	t.Run("farm owned by another user is rejected", func(t *testing.T) {
		conn, sock := rig.dial(t)
		rig.exchange(t, conn, sock, "new_user intruder 123")
		got := rig.exchange(t, conn, sock, "connect_farm myfarm secret")
		expectReply(t, got, "connect_farm error It is not your farm!")
	})
}

func TestCommandForwarding(t *testing.T) {
	rig := newRig(t)

	// Owner signs in and attaches the farm; the device signs in on its own
	// socket under a different session.
	owner, ownerSock := rig.dial(t)
	expectReply(t, rig.exchange(t, owner, ownerSock, "new_user vasya 123"), "sign_in success 1")
	expectReply(t, rig.exchange(t, owner, ownerSock, "new_farm myfarm 123"), "connect_farm success 2")

	device, deviceSock := rig.dial(t)
	expectReply(t, rig.exchange(t, device, deviceSock, "sign_in farm_myfarm 123"), "sign_in success 3")

	t.Run("set_temperature reaches the device socket", func(t *testing.T) {
		got := rig.exchange(t, owner, ownerSock, "set_temperature 25.5")
		expectReply(t, got, "set_temperature success")
		if frame := deviceSock.recv(t); frame != "set_temperature 25.5" {
			t.Errorf("device received %q, want %q", frame, "set_temperature 25.5")
		}
	})

	t.Run("set_humidity", func(t *testing.T) {
		expectReply(t, rig.exchange(t, owner, ownerSock, "set_humidity 60"), "set_humidity success")
		if frame := deviceSock.recv(t); frame != "set_humidity 60" {
			t.Errorf("device received %q", frame)
		}
	})

	t.Run("set_light_interval", func(t *testing.T) {
		expectReply(t, rig.exchange(t, owner, ownerSock, "set_light_interval 8 20"), "set_light_interval success")
		if frame := deviceSock.recv(t); frame != "set_light_interval 8 20" {
			t.Errorf("device received %q", frame)
		}
	})

	t.Run("set_pump_interval", func(t *testing.T) {
		expectReply(t, rig.exchange(t, owner, ownerSock, "set_pump_interval 10 30"), "set_pump_interval success")
		if frame := deviceSock.recv(t); frame != "set_pump_interval 10 30" {
			t.Errorf("device received %q", frame)
		}
	})

	t.Run("offline device still succeeds", func(t *testing.T) {
		device.Close()
		rig.core.HandleClose(context.Background(), device)
		expectReply(t, rig.exchange(t, owner, ownerSock, "set_humidity 55"), "set_humidity success")
	})
}

func TestCommandPreconditions(t *testing.T) {
	rig := newRig(t)

	t.Run("requires sign_in", func(t *testing.T) {
		conn, sock := rig.dial(t)
		got := rig.exchange(t, conn, sock, "set_temperature 20")
		expectReply(t, got, "set_temperature error Not signed in!")
	})

	t.Run("requires an attached farm", func(t *testing.T) {
		conn, sock := rig.dial(t)
		rig.exchange(t, conn, sock, "new_user vasya 123")
		got := rig.exchange(t, conn, sock, "set_pump_interval 1 2")
		expectReply(t, got, "set_pump_interval error Farm is not connected!")
	})
}

func TestTelemetryRelay(t *testing.T) {
	rig := newRig(t)

	owner, ownerSock := rig.dial(t)
	expectReply(t, rig.exchange(t, owner, ownerSock, "new_user vasya 123"), "sign_in success 1")
	expectReply(t, rig.exchange(t, owner, ownerSock, "new_farm myfarm 123"), "connect_farm success 2")

	device, deviceSock := rig.dial(t)
	expectPrefix(t, rig.exchange(t, device, deviceSock, "sign_in farm_myfarm 123"), "sign_in success")

	t.Run("frames pass through verbatim", func(t *testing.T) {
		rig.send(device, "temperature 22.1 humidity 58")
		if frame := ownerSock.recv(t); frame != "temperature 22.1 humidity 58" {
			t.Errorf("owner received %q", frame)
		}
		// The device socket gets no reply for telemetry.
		deviceSock.expectNothing(t)
	})

	t.Run("every owner session receives a copy", func(t *testing.T) {
		second, secondSock := rig.dial(t)
		expectPrefix(t, rig.exchange(t, second, secondSock, "sign_in vasya 123"), "sign_in success")

		rig.send(device, "ph 6.2")
		if frame := ownerSock.recv(t); frame != "ph 6.2" {
			t.Errorf("first owner socket received %q", frame)
		}
		if frame := secondSock.recv(t); frame != "ph 6.2" {
			t.Errorf("second owner socket received %q", frame)
		}
	})
}

func TestParseFailures(t *testing.T) {
	rig := newRig(t)
	conn, sock := rig.dial(t)
	rig.exchange(t, conn, sock, "new_user vasya 123")
	rig.exchange(t, conn, sock, "new_farm myfarm 123")

	cases := []struct {
		name  string
		frame string
		want  string
	}{
		{"unknown verb", "make_tea now", "error: Cannot parse command - make_tea"},
		{"empty frame", "", "error: Cannot parse command - "},
		{"missing argument", "set_temperature", "error: Cannot parse command - set_temperature"},
		{"non-numeric float", "set_temperature warm", "error: Cannot parse command - set_temperature"},
		{"non-numeric int", "set_humidity damp", "error: Cannot parse command - set_humidity"},
		{"extra argument", "set_humidity 60 70", "error: Cannot parse command - set_humidity"},
		{"interval arity", "set_light_interval 8", "error: Cannot parse command - set_light_interval"},
		{"sign_in arity", "sign_in onlylogin", "error: Cannot parse command - sign_in"},
		{"sign_out with arguments", "sign_out now", "error: Cannot parse command - sign_out"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := rig.exchange(t, conn, sock, tc.frame)
			expectReply(t, got, tc.want)
		})
	}

	t.Run("parse failure leaves state intact", func(t *testing.T) {
		if !conn.SignedIn() || !conn.FarmAttached() {
			t.Error("connection state changed by unparseable frames")
		}
	})
}

func TestCloseTeardown(t *testing.T) {
	rig := newRig(t)

	conn, sock := rig.dial(t)
	rig.exchange(t, conn, sock, "new_user vasya 123")
	rig.exchange(t, conn, sock, "new_farm myfarm 123")

	conn.Close()
	rig.core.HandleClose(context.Background(), conn)

	sessions, err := rig.store.ListSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no live sessions after close, got %d", len(sessions))
	}

	// The account survives the socket.
	if _, err := rig.store.GetUser(context.Background(), "vasya"); err != nil {
		t.Errorf("user lookup after close failed: %v", err)
	}
}
