package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

var baseURL = "http://localhost:8080"

func main() {
	if v := os.Getenv("SERVER_URL"); v != "" {
		baseURL = v
	}
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	fmt.Println("1. Health...")
	check("Health", sendRequest("GET", "/healthz", nil))

	fmt.Println("2. Graph statistics...")
	check("Stats", sendRequest("GET", "/stats", nil))

	fmt.Println("3. Tool listing...")
	check("Tools", sendRequest("GET", "/tools", nil))

	fmt.Println("4. Best rated products...")
	check("Best rated", sendRequest("POST", "/tools/get_best_rated_products", map[string]any{"min_reviews": 1}))

	sessionID := fmt.Sprintf("integration-%d", time.Now().Unix())

	fmt.Println("5. Chat...")
	chat := map[string]string{
		"session_id": sessionID,
		"message":    "What are the most popular products?",
	}
	check("Chat", sendRequest("POST", "/chat", chat))

	fmt.Println("6. Clear session...")
	check("Clear", sendRequest("POST", "/chat/clear", map[string]string{"session_id": sessionID}))
}

func check(name string, ok bool) {
	if !ok {
		fmt.Printf("FAILED: %s\n", name)
		os.Exit(1)
	}
	fmt.Printf("PASSED: %s\n", name)
}

func sendRequest(method, endpoint string, payload interface{}) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return false
	}
	fmt.Printf("Response: %s\n", string(respBody))

	return true
}
