package inference

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"github.com/samcharles93/glance/internal/gguf"
)

// DefaultModelID is the checkpoint glance serves unless configured otherwise.
const DefaultModelID = "HuggingFaceTB/SmolVLM-256M-Instruct"

// ModelInfo is what the preprocessing side needs to know about a checkpoint.
type ModelInfo struct {
	ID            string
	Arch          string
	ChatTemplate  string
	BOSToken      string
	SpecialTokens []string
	// GGUFRepo is the Hugging Face repository holding a llama.cpp conversion.
	GGUFRepo string
}

var knownModels = map[string]ModelInfo{
	"huggingfacetb/smolvlm-256m-instruct": {Arch: "idefics3", GGUFRepo: "ggml-org/SmolVLM-256M-Instruct-GGUF"},
	"huggingfacetb/smolvlm-500m-instruct": {Arch: "idefics3", GGUFRepo: "ggml-org/SmolVLM-500M-Instruct-GGUF"},
	"huggingfacetb/smolvlm-instruct":      {Arch: "idefics3", GGUFRepo: "ggml-org/SmolVLM-Instruct-GGUF"},
	"qwen/qwen2-vl-2b-instruct":           {Arch: "qwen2_vl", GGUFRepo: "ggml-org/Qwen2-VL-2B-Instruct-GGUF"},
	"llava-hf/llava-v1.6-mistral-7b-hf":   {Arch: "llava_next"},
}

// ResolveModelInfo looks id up in the built-in table and overlays whatever a
// local Hugging Face snapshot in dir provides. dir may be empty.
func ResolveModelInfo(id, dir string) (ModelInfo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = DefaultModelID
	}
	info := knownModels[strings.ToLower(id)]
	info.ID = id
	if dir != "" {
		if err := overlaySnapshot(&info, dir); err != nil {
			return ModelInfo{}, err
		}
	}
	return info, nil
}

type hfConfig struct {
	ModelType string `json:"model_type"`
}

type hfChatTemplate struct {
	ChatTemplate string `json:"chat_template"`
}

type hfAddedToken struct {
	Content string `json:"content"`
	Special bool   `json:"special"`
}

type hfTokenizerConfig struct {
	ChatTemplate       json.RawMessage         `json:"chat_template"`
	BOSToken           json.RawMessage         `json:"bos_token"`
	AddedTokensDecoder map[string]hfAddedToken `json:"added_tokens_decoder"`
}

func overlaySnapshot(info *ModelInfo, dir string) error {
	st, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("model dir: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("model dir is not a directory: %s", dir)
	}

	var cfg hfConfig
	if ok, err := readJSON(filepath.Join(dir, "config.json"), &cfg); err != nil {
		return err
	} else if ok && cfg.ModelType != "" {
		info.Arch = cfg.ModelType
	}

	var tokCfg hfTokenizerConfig
	if ok, err := readJSON(filepath.Join(dir, "tokenizer_config.json"), &tokCfg); err != nil {
		return err
	} else if ok {
		if tpl := rawString(tokCfg.ChatTemplate); tpl != "" {
			info.ChatTemplate = tpl
		}
		if bos := tokenContent(tokCfg.BOSToken); bos != "" {
			info.BOSToken = bos
		}
		for _, tok := range tokCfg.AddedTokensDecoder {
			if tok.Special && tok.Content != "" {
				info.SpecialTokens = append(info.SpecialTokens, tok.Content)
			}
		}
	}

	// chat_template.json wins over tokenizer_config.json, as in transformers.
	var tpl hfChatTemplate
	if ok, err := readJSON(filepath.Join(dir, "chat_template.json"), &tpl); err != nil {
		return err
	} else if ok && tpl.ChatTemplate != "" {
		info.ChatTemplate = tpl.ChatTemplate
	}
	return nil
}

// overlayGGUF fills what the table and snapshot left empty from the metadata
// of a local GGUF file. Control tokens from the embedded vocabulary are
// always added to the special tokens.
func overlayGGUF(info *ModelInfo, path string) error {
	md, err := gguf.ReadMetadata(path)
	if err != nil {
		return fmt.Errorf("read gguf metadata: %w", err)
	}
	if info.Arch == "" {
		info.Arch = md.Architecture()
	}
	if strings.TrimSpace(info.ChatTemplate) == "" {
		info.ChatTemplate = md.ChatTemplate()
	}
	if info.BOSToken == "" {
		info.BOSToken = md.BOSToken()
	}
	for _, tok := range md.ControlTokens() {
		if !slices.Contains(info.SpecialTokens, tok) {
			info.SpecialTokens = append(info.SpecialTokens, tok)
		}
	}
	return nil
}

func readJSON(path string, v any) (bool, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// rawString decodes a JSON string; templates given as a list of named
// variants are ignored.
func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// tokenContent accepts both "bos_token": "<s>" and
// "bos_token": {"content": "<s>", ...}.
func tokenContent(raw json.RawMessage) string {
	if s := rawString(raw); s != "" {
		return s
	}
	var tok hfAddedToken
	if len(raw) == 0 || json.Unmarshal(raw, &tok) != nil {
		return ""
	}
	return tok.Content
}
