package channel

import (
	"bytes"
	"testing"
	"time"
)

func TestUDPLoopback(t *testing.T) {
	server, err := ListenUDP("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()

	client, err := DialUDP(server.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if _, err := client.WriteTo([]byte("hello"), nil); err != nil {
		t.Fatal(err)
	}
	server.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 16)
	n, from, err := server.ReadFrom(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf[:n], []byte("hello")) {
		t.Errorf("server read %q", buf[:n])
	}
	if from.String() != client.LocalAddr().String() {
		t.Errorf("from %v, want %v", from, client.LocalAddr())
	}

	if _, err := server.WriteTo([]byte("world"), from); err != nil {
		t.Fatal(err)
	}
	client.SetReadDeadline(time.Now().Add(time.Second))
	n, from, err = client.ReadFrom(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf[:n], []byte("world")) {
		t.Errorf("client read %q", buf[:n])
	}
	if from.String() != server.LocalAddr().String() {
		t.Errorf("connected read reports %v, want %v", from, server.LocalAddr())
	}
}

func TestInNamespaceEmptyName(t *testing.T) {
	called := false
	if err := InNamespace("", func() error { called = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("fn not called")
	}
}
