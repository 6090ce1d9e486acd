package scanner

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// transcriptRecord is the union of the two record shapes a transcript line
// can take. Copilot-style events carry type "user.message"/"assistant.message"
// with a flat data.content string; Claude-style events carry type
// "user"/"assistant" with a nested message.content that is either a string
// or an array of typed content blocks.
type transcriptRecord struct {
	Type string `json:"type"`
	Data struct {
		Content string `json:"content"`
	} `json:"data"`
	Message struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// extractTranscript parses raw as newline-delimited JSON records and
// reconstructs the conversation as alternating "User: "/"Assistant: " lines,
// ignoring malformed lines and records of unrecognized type.
func extractTranscript(raw []byte) string {
	var lines []string

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var rec transcriptRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}

		switch rec.Type {
		case "user.message":
			if c := rec.Data.Content; c != "" && !strings.HasPrefix(c, "/") {
				lines = append(lines, "User: "+c)
			}
		case "assistant.message":
			if c := rec.Data.Content; c != "" {
				lines = append(lines, "Assistant: "+c)
			}
		case "user":
			if c := extractContent(rec.Message.Content); c != "" && !isSlashOrCommandTag(c) {
				lines = append(lines, "User: "+c)
			}
		case "assistant":
			if c := extractContent(rec.Message.Content); c != "" {
				lines = append(lines, "Assistant: "+c)
			}
		}
	}

	return strings.Join(lines, "\n")
}

// extractContent normalizes a Claude-style message.content field, which is
// either a plain string or an array of typed blocks, into plain text by
// concatenating the text of every "text"-typed block.
func extractContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var b strings.Builder
		for _, blk := range blocks {
			if blk.Type == "text" {
				b.WriteString(blk.Text)
			}
		}
		return b.String()
	}

	return ""
}

func isSlashOrCommandTag(text string) bool {
	return strings.HasPrefix(text, "/") ||
		strings.HasPrefix(text, "<command-") ||
		strings.HasPrefix(text, "<local-command-")
}

func hashEntry(e Entry) Entry {
	sum := sha256.Sum256([]byte(e.Content))
	e.Hash = hex.EncodeToString(sum[:])
	return e
}
