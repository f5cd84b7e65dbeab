package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Client is a minimal HTTP client for the chat backend.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// Chat sends one conversation turn and returns the reply.
func (c *Client) Chat(session, message string) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"session_id": session,
		"message":    message,
	})
	resp, err := c.client.Post(c.baseURL+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(payload, resp.Status)
	}
	var out struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", err
	}
	return out.Reply, nil
}

// Upload posts a local file for ingestion and reports chunk counts.
func (c *Client) Upload(session, path string) (chunks, embedded int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("session_id", session); err != nil {
		return 0, 0, err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return 0, 0, err
	}
	if _, err := fw.Write(data); err != nil {
		return 0, 0, err
	}
	if err := mw.Close(); err != nil {
		return 0, 0, err
	}

	resp, err := c.client.Post(c.baseURL+"/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, 0, decodeError(payload, resp.Status)
	}
	var out struct {
		Chunks   int `json:"chunks"`
		Embedded int `json:"embedded"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return 0, 0, err
	}
	return out.Chunks, out.Embedded, nil
}

func decodeError(payload []byte, status string) error {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Error.Message != "" {
		return fmt.Errorf("server error: %s", envelope.Error.Message)
	}
	return fmt.Errorf("server error: %s", status)
}
