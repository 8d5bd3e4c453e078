package extract

import "fmt"

// Engines bundles the configured clients for name-based lookup ("gemini",
// "gpt", "deepseek").
type Engines struct {
	Gemini   Client
	OpenAI   Client
	Deepseek Client
}

func (e *Engines) Get(name string) (Client, error) {
	switch name {
	case "gemini":
		if e.Gemini != nil {
			return e.Gemini, nil
		}
	case "gpt", "openai":
		if e.OpenAI != nil {
			return e.OpenAI, nil
		}
	case "deepseek":
		if e.Deepseek != nil {
			return e.Deepseek, nil
		}
	default:
		return nil, fmt.Errorf("unknown engine: %s", name)
	}
	return nil, fmt.Errorf("engine %s is not configured", name)
}
