//go:build integration

package firestore

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/sundai-club/shop/internal/domain"
	pconfig "github.com/sundai-club/shop/internal/platform/config"
	pfirestore "github.com/sundai-club/shop/internal/platform/firestore"
	"github.com/sundai-club/shop/internal/repositories"
)

func TestRepositoriesIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}
	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })
	waitForEndpoint(t, endpoint, 30*time.Second)

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "shop-test", EmulatorHost: endpoint})
	registry, err := NewRegistry(provider)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(func() { _ = registry.Close(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	carts := registry.Carts()
	cart, err := carts.Get(ctx, "sess-1")
	if err != nil || !cart.IsEmpty() {
		t.Fatalf("expected empty cart, got %+v err=%v", cart, err)
	}
	cart.Entries = append(cart.Entries, domain.CartEntry{ProductID: 7, Size: "M", Quantity: 2})
	if err := carts.Put(ctx, cart); err != nil {
		t.Fatalf("put cart: %v", err)
	}
	if loaded, err := carts.Get(ctx, "sess-1"); err != nil || len(loaded.Entries) != 1 {
		t.Fatalf("expected stored entry, got %+v err=%v", loaded, err)
	}

	pending := registry.PendingOrders()
	order := domain.PendingCheckoutOrder{ID: "01A", PaymentSessionID: "cs_1", AppSessionID: "sess-1"}
	if err := pending.Create(ctx, order); err != nil {
		t.Fatalf("create pending: %v", err)
	}
	if err := pending.Create(ctx, order); !repositories.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := pending.Get(ctx, "cs_missing"); !repositories.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			_, _ = pending.MarkFulfilled(ctx, "cs_1", int64(100+i), time.Now())
		}(i)
	}
	wg.Wait()

	final, err := pending.Get(ctx, "cs_1")
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if !final.Fulfilled || final.FulfillmentOrderID < 100 {
		t.Fatalf("expected fulfilled record, got %+v", final)
	}
	again, err := pending.MarkFulfilled(ctx, "cs_1", 1, time.Now())
	if err != nil || again.FulfillmentOrderID != final.FulfillmentOrderID {
		t.Fatalf("expected unchanged record, got %+v err=%v", again, err)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}
	out, err := exec.Command("docker", args...).CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, "docker", "info").Run(); err != nil {
		t.Skipf("docker daemon not available: %v", err)
	}
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = exec.CommandContext(ctx, "docker", "stop", id).Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("firestore emulator at %s did not become ready within %s", endpoint, timeout)
}

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"
