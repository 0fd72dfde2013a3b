package llm

// ResolveModel picks the model for a run: the explicit flag wins, then
// the configured default (config file or LLMFLOW_MODEL), then DefaultModel.
func ResolveModel(flag, configured string) string {
	if flag != "" {
		return flag
	}
	if configured != "" {
		return configured
	}
	return DefaultModel
}
