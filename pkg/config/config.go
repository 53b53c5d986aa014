package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates the global configuration manager, registers every
// section and loads the file at configPath. Call it once at startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager := NewManager(store)
	for _, section := range defaultSections() {
		if err := manager.RegisterSection(section); err != nil {
			return err
		}
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

func defaultSections() []Section {
	return []Section{
		NewLLMSection(),
		NewAgentSection(),
		NewDeviceSection(),
		NewBrowserSection(),
		NewSearchSection(),
		NewImageGenSection(),
		NewEventsSection(),
	}
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

func globalSection[T Section](id string) T {
	var zero T
	if !IsInitialized() {
		return zero
	}
	section, ok := Global().GetSection(id)
	if !ok {
		return zero
	}
	typed, ok := section.(T)
	if !ok {
		return zero
	}
	return typed
}

// GetLLM returns the LLM settings section from global config.
// Returns nil if config is not initialized.
func GetLLM() *LLMSection { return globalSection[*LLMSection](SectionIDLLM) }

// GetAgent returns the agent loop section, or nil before Initialize.
func GetAgent() *AgentSection { return globalSection[*AgentSection](SectionIDAgent) }

// GetDevice returns the device section, or nil before Initialize.
func GetDevice() *DeviceSection { return globalSection[*DeviceSection](SectionIDDevice) }

// GetBrowser returns the browser worker section, or nil before Initialize.
func GetBrowser() *BrowserSection { return globalSection[*BrowserSection](SectionIDBrowser) }

// GetSearch returns the web search section, or nil before Initialize.
func GetSearch() *SearchSection { return globalSection[*SearchSection](SectionIDSearch) }

// GetImageGen returns the image generation section, or nil before Initialize.
func GetImageGen() *ImageGenSection { return globalSection[*ImageGenSection](SectionIDImageGen) }

// GetEvents returns the event sink section, or nil before Initialize.
func GetEvents() *EventsSection { return globalSection[*EventsSection](SectionIDEvents) }

// AgentSettingsOrDefault returns the configured agent settings, or the
// defaults when config has not been initialized.
func AgentSettingsOrDefault() AgentSettings {
	if s := GetAgent(); s != nil {
		return s.Settings()
	}
	return NewAgentSection().Settings()
}
