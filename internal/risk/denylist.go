package risk

// SuspiciousAPIs are imported function names commonly seen in injectors,
// loaders, keyloggers and persistence code.
var SuspiciousAPIs = map[string]struct{}{
	// Process injection and memory manipulation
	"CreateRemoteThread": {},
	"VirtualAlloc":       {},
	"VirtualAllocEx":     {},
	"WriteProcessMemory": {},

	// Dynamic code loading
	"LoadLibraryA":   {},
	"LoadLibraryW":   {},
	"GetProcAddress": {},

	// Process execution
	"WinExec": {},

	// Network
	"WSAStartup": {},
	"connect":    {},

	// Input monitoring
	"GetAsyncKeyState": {},
	"GetKeyboardState": {},

	// Registry
	"RegOpenKeyExA":  {},
	"RegOpenKeyExW":  {},
	"RegSetValueExA": {},
	"RegSetValueExW": {},
}

// IsSuspicious reports whether name is on the denylist.
func IsSuspicious(name string) bool {
	_, ok := SuspiciousAPIs[name]
	return ok
}
