package e2e

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

var (
	appURL string
)

func TestMain(m *testing.M) {
	os.Exit(runTestMain(m))
}

// buildBinary builds ../cmd/<name>, or ./cmd/<name> when run from the root.
func buildBinary(name string) (string, error) {
	out := filepath.Join(os.TempDir(), "zakat-e2e-"+name)
	pkg := "../cmd/" + name
	if _, err := os.Stat(pkg); os.IsNotExist(err) {
		pkg = "./cmd/" + name
	}
	cmd := exec.Command("go", "build", "-o", out, pkg)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("build %s: %v\n%s", name, err, output)
	}
	return out, nil
}

func waitReady(url string) bool {
	for range 50 {
		time.Sleep(100 * time.Millisecond)
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
	}
	return false
}

func runTestMain(m *testing.M) int {
	// 1. Build both binaries
	apiBin, err := buildBinary("zakat-api")
	if err != nil {
		fmt.Println(err)
		return 1
	}
	defer os.Remove(apiBin)
	webBin, err := buildBinary("zakat-web")
	if err != nil {
		fmt.Println(err)
		return 1
	}
	defer os.Remove(webBin)

	// 2. Start the API on a fresh database
	dbPath := filepath.Join(os.TempDir(), "zakat_e2e.db")
	os.Remove(dbPath)
	defer os.Remove(dbPath)

	apiPort, webPort := "8091", "8092"
	apiURL := "http://localhost:" + apiPort
	appURL = "http://localhost:" + webPort

	apiCmd := exec.Command(apiBin)
	apiCmd.Env = append(os.Environ(), "API_PORT="+apiPort, "DB_PATH="+dbPath)
	apiCmd.Stdout = os.Stdout
	apiCmd.Stderr = os.Stderr
	if err := apiCmd.Start(); err != nil {
		fmt.Printf("Failed to start API: %v\n", err)
		return 1
	}
	defer apiCmd.Process.Kill()

	if !waitReady(apiURL + "/") {
		fmt.Println("API failed to start or is not reachable")
		return 1
	}

	// 3. Start the web front end
	webCmd := exec.Command(webBin)
	webCmd.Env = append(os.Environ(), "WEB_PORT="+webPort, "API_URL="+apiURL)
	webCmd.Stdout = os.Stdout
	webCmd.Stderr = os.Stderr
	if err := webCmd.Start(); err != nil {
		fmt.Printf("Failed to start web front end: %v\n", err)
		return 1
	}
	defer webCmd.Process.Kill()

	if !waitReady(appURL + "/auth") {
		fmt.Println("Web front end failed to start or is not reachable")
		return 1
	}

	// 4. Run tests
	return m.Run()
}
