package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

var (
	blue   = color.New(color.FgBlue).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

type TestClient struct {
	baseURL  string
	clientID string
	client   *http.Client
}

func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: uuid.NewString(),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the Ikigai server")
	testType := flag.String("test", "all", "Test type: all, health, generate, record, diagram, intersections, advice")
	prompt := flag.String("prompt", "", "Custom prompt for the generate test")
	flag.Parse()

	client := NewTestClient(*baseURL)

	printHeader("Ikigai Coach - Smoke Tests")
	fmt.Printf("%s\n", cyan("Base URL: "+*baseURL))
	fmt.Printf("%s\n\n", cyan("Client ID: "+client.clientID))

	tests := map[string]func() bool{
		"health":        client.testHealthCheck,
		"generate":      func() bool { return client.testGenerate(*prompt) },
		"record":        client.testRecord,
		"diagram":       client.testDiagram,
		"intersections": client.testIntersections,
		"advice":        client.testAdvice,
	}

	if *testType == "all" {
		client.runAllTests(*prompt)
		return
	}
	fn, ok := tests[*testType]
	if !ok {
		printError(fmt.Sprintf("Unknown test type: %s", *testType))
		fmt.Println("\nAvailable tests: all, health, generate, record, diagram, intersections, advice")
		os.Exit(1)
	}
	if !fn() {
		os.Exit(1)
	}
}

func (tc *TestClient) runAllTests(prompt string) {
	tests := []struct {
		name string
		fn   func() bool
	}{
		{"Health Check", tc.testHealthCheck},
		{"Gateway", func() bool { return tc.testGenerate(prompt) }},
		{"Record", tc.testRecord},
		{"Diagram", tc.testDiagram},
		{"Intersections", tc.testIntersections},
		{"Advice", tc.testAdvice},
	}

	passed := 0
	failed := 0

	for _, test := range tests {
		if test.fn() {
			passed++
		} else {
			failed++
		}
		fmt.Println()
	}

	printHeader("Test Summary")
	fmt.Println(green(fmt.Sprintf("Passed: %d", passed)))
	fmt.Println(red(fmt.Sprintf("Failed: %d", failed)))
	fmt.Printf("Total: %d\n", passed+failed)

	if failed > 0 {
		os.Exit(1)
	}
}

// do sends a request as this client and returns the status and body.
func (tc *TestClient) do(method, path string, payload any) (int, http.Header, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, nil, err
		}
		body = bytes.NewReader(data)
	}

	url := tc.baseURL + path
	fmt.Printf("%s %s\n", method, url)

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return 0, nil, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Client-ID", tc.clientID)

	resp, err := tc.client.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header, data, err
}

func (tc *TestClient) testHealthCheck() bool {
	printTestHeader("Testing Health Check Endpoint")

	status, _, body, err := tc.do(http.MethodGet, "/health", nil)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if status != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", status))
		return false
	}
	if string(body) != "OK" {
		printError(fmt.Sprintf("Expected body 'OK', got '%s'", string(body)))
		return false
	}

	printSuccess("Health check passed")
	return true
}

func (tc *TestClient) testGenerate(prompt string) bool {
	printTestHeader("Testing Text Generation Gateway")

	status, _, body, err := tc.do(http.MethodPost, "/generate", map[string]any{"prompt": ""})
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if status != http.StatusBadRequest {
		printError(fmt.Sprintf("Empty prompt: expected status 400, got %d", status))
		return false
	}
	printSuccess("Empty prompt rejected")

	if prompt == "" {
		prompt = "Reply with one short sentence about finding purpose."
	}
	fmt.Printf("%s %s\n\n", cyan("Prompt:"), prompt)

	status, _, body, err = tc.do(http.MethodPost, "/generate", map[string]any{"prompt": prompt})
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if status != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", status))
		printJSON(body)
		return false
	}

	var envelope struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Candidates) == 0 {
		printError("Response has no candidates")
		printJSON(body)
		return false
	}

	printSuccess("Gateway answered")
	for _, p := range envelope.Candidates[0].Content.Parts {
		fmt.Println(p.Text)
	}
	return true
}

func (tc *TestClient) testRecord() bool {
	printTestHeader("Testing Record Updates")

	status, _, body, err := tc.do(http.MethodPatch, "/api/record", map[string]any{"love": "Teaching curious people"})
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if status != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", status))
		printJSON(body)
		return false
	}

	_, _, body, err = tc.do(http.MethodGet, "/api/record", nil)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	var got struct {
		Record map[string]string `json:"record"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}
	if got.Record["love"] != "Teaching curious people" {
		printError(fmt.Sprintf("Expected love to be updated, got '%s'", got.Record["love"]))
		return false
	}

	printSuccess("Record updated and read back")
	printJSON(body)
	return true
}

func (tc *TestClient) testDiagram() bool {
	printTestHeader("Testing Diagram Rendering")

	status, header, body, err := tc.do(http.MethodGet, "/api/diagram.svg?theme=dark", nil)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if status != http.StatusOK || !bytes.HasPrefix(body, []byte("<svg")) {
		printError(fmt.Sprintf("Expected an SVG document, got status %d (%s)", status, header.Get("Content-Type")))
		return false
	}
	printSuccess(fmt.Sprintf("SVG rendered (%d bytes)", len(body)))

	status, header, body, err = tc.do(http.MethodGet, "/api/diagram.png", nil)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if status != http.StatusOK || !bytes.HasPrefix(body, []byte("\x89PNG")) {
		printError(fmt.Sprintf("Expected a PNG image, got status %d", status))
		return false
	}
	printSuccess(fmt.Sprintf("PNG exported (%d bytes, %s)", len(body), header.Get("Content-Disposition")))
	return true
}

func (tc *TestClient) testIntersections() bool {
	printTestHeader("Testing Intersection Generation")

	status, _, body, err := tc.do(http.MethodPost, "/api/record/intersections", nil)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if status != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", status))
		printJSON(body)
		return false
	}

	printSuccess("Intersections generated")
	printJSON(body)
	return true
}

func (tc *TestClient) testAdvice() bool {
	printTestHeader("Testing Advice")

	status, _, body, err := tc.do(http.MethodPost, "/api/advice", nil)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if status != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", status))
		printJSON(body)
		return false
	}

	var view struct {
		State string `json:"state"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal(body, &view); err != nil || view.State != "loaded" {
		printError(fmt.Sprintf("Expected state 'loaded', got '%s'", view.State))
		return false
	}
	printSuccess("Advice loaded")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println(view.Text)
	fmt.Println(strings.Repeat("=", 80))

	status, _, _, err = tc.do(http.MethodPost, "/api/advice/close", nil)
	if err != nil || status != http.StatusConflict {
		printError(fmt.Sprintf("Closing unsaved advice should ask for confirmation, got %d", status))
		return false
	}
	printSuccess("Closing unsaved advice asks for confirmation")

	status, _, _, err = tc.do(http.MethodPost, "/api/advice/close", map[string]any{"confirm": true})
	if err != nil || status != http.StatusOK {
		printError(fmt.Sprintf("Confirmed close failed with status %d", status))
		return false
	}
	printSuccess("Advice closed")
	return true
}

func printHeader(text string) {
	fmt.Println(blue(strings.Repeat("=", len(text)+4)))
	fmt.Println(blue("= " + text + " ="))
	fmt.Println(blue(strings.Repeat("=", len(text)+4)))
	fmt.Println()
}

func printTestHeader(text string) {
	fmt.Println(cyan("[TEST] " + text))
	fmt.Println(strings.Repeat("-", 80))
}

func printSuccess(text string) {
	fmt.Println(green("✓ " + text))
}

func printError(text string) {
	fmt.Println(red("✗ " + text))
}

func printJSON(data []byte) {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, data, "", "  "); err == nil {
		fmt.Printf("\n%s\n%s\n", yellow("Response:"), prettyJSON.String())
	}
}
