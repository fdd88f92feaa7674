// Command openai-stub is a local OpenAI-compatible chat completions server
// for exercising the extraction pipeline without a real model. STUB_MODE
// selects the reply shape: ok (default), truncated, prose, or quota.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

const okReply = `{"company":"Example Corp","job_title":"Senior Backend Engineer","full_description":"Design, build and operate the services behind our hiring platform. You will own APIs end to end, from schema design through deployment, and mentor two mid-level engineers.","hiring_manager":"Dana Alvarez","ad_source":"generic"}`

// truncatedReply is cut mid-string the way a hard token cap cuts real
// replies, so clients can exercise their JSON repair path.
const truncatedReply = `{"company":"Example Corp","job_title":"Senior Backend Engineer","ad_source":"generic","full_description":"Design, build and operate the services behind our hiring platform. You will own APIs end to end, from schema design through`

const proseReply = `Here is the extracted job posting information you asked for. The company appears to be Example Corp and the role is Senior Backend Engineer.`

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("STUB_MODE")))
	if mode == "" {
		mode = "ok"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		if mode == "quota" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{
					"message": "You exceeded your current quota, please check your plan and billing details.",
					"type":    "insufficient_quota",
					"code":    "insufficient_quota",
				},
			})
			return
		}

		var content string
		switch mode {
		case "truncated":
			content = truncatedReply
		case "prose":
			content = proseReply
		default:
			content = okReply
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})

	log.Printf("openai-stub listening on %s (model=%s, mode=%s)", addr, model, mode)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
