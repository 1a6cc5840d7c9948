package entities

// Category names as they appear in the policy document.
const (
	CategoryRead              = "allow_read"
	CategoryCreate            = "allow_create"
	CategoryModify            = "allow_modify"
	CategoryDelete            = "allow_delete"
	CategoryEnvReads          = "allow_env_var_reads"
	CategoryEnvWrites         = "allow_env_var_writes"
	CategorySystemCommands    = "allow_system_commands"
	CategoryExecutables       = "allow_executables"
	CategoryDomains           = "allow_domains"
	CategoryHTTPURLs          = "allow_http_urls"
	CategoryHTTPMethods       = "allow_http_methods"
	CategoryHTTPPayloadHashes = "allow_http_payload_hashes"
	CategoryPyPIRequests      = "allow_pypi_requests"
	CategoryLogInfoEvents     = "log_info_events"
)

// PermissionConfig is the policy document.
type PermissionConfig struct {
	AllowRead   []Entry `json:"allow_read" validate:"dive" jsonschema:"description=Files and directories that may be read"`
	AllowCreate []Entry `json:"allow_create" validate:"dive" jsonschema:"description=Locations where new files may be created"`
	AllowModify []Entry `json:"allow_modify" validate:"dive" jsonschema:"description=Existing files that may be written; hash pins the current content"`
	AllowDelete []Entry `json:"allow_delete" validate:"dive" jsonschema:"description=Files and directories that may be removed"`

	AllowEnvVarReads  []string `json:"allow_env_var_reads" jsonschema:"description=Environment variables that may be read; empty allows all reads"`
	AllowEnvVarWrites []string `json:"allow_env_var_writes" jsonschema:"description=Environment variables that may be set or unset"`

	AllowSystemCommands []string `json:"allow_system_commands" jsonschema:"description=Shell-style globs over command lines"`
	AllowExecutables    []Entry  `json:"allow_executables" validate:"dive" jsonschema:"description=Executables and libraries that may be started or loaded"`

	AllowDomains           []string      `json:"allow_domains" jsonschema:"description=Hosts (and subdomains) with optional :port"`
	AllowHTTPURLs          []string      `json:"allow_http_urls" jsonschema:"description=host/path globs; empty means domain checks only"`
	AllowHTTPMethods       []string      `json:"allow_http_methods" validate:"dive,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS CONNECT TRACE" jsonschema:"description=Permitted HTTP methods; empty allows all"`
	AllowHTTPPayloadHashes []PayloadHash `json:"allow_http_payload_hashes" validate:"dive" jsonschema:"description=Content pins for fetched URLs"`

	AllowPyPIRequests bool `json:"allow_pypi_requests" jsonschema:"description=Allow the package index hosts without listing them"`
	LogInfoEvents     bool `json:"log_info_events" jsonschema:"description=Log informational events"`

	// Extra holds top-level keys this version does not know. They are
	// written back unchanged.
	Extra map[string]any `json:"-"`
}

// PackageIndexHosts are admitted when AllowPyPIRequests is set.
var PackageIndexHosts = []string{
	"pypi.org",
	"www.pypi.org",
	"files.pythonhosted.org",
	"upload.pypi.org",
	"test.pypi.org",
}

// configDefaults holds the roots used by DefaultConfig.
type configDefaults struct {
	readRoots  []string
	writeRoots []string
}

// ConfigOption adjusts DefaultConfig.
type ConfigOption func(*configDefaults)

// WithReadRoots adds placeholder roots that are readable by default.
func WithReadRoots(roots ...string) ConfigOption {
	return func(c *configDefaults) {
		c.readRoots = append(c.readRoots, roots...)
	}
}

// WithWriteRoots adds placeholder roots where files may be created and modified by default.
func WithWriteRoots(roots ...string) ConfigOption {
	return func(c *configDefaults) {
		c.writeRoots = append(c.writeRoots, roots...)
	}
}

// DefaultConfig returns the compiled-in policy: the working directory and the
// language installation roots are readable, only the working directory is
// writable, nothing may be deleted, and every other list is empty.
func DefaultConfig(opts ...ConfigOption) *PermissionConfig {
	d := configDefaults{
		readRoots: []string{
			"$PWD",
			"$GOROOT",
			"$PYTHON_STDLIB",
			"$PYTHON_SITE_PACKAGES",
			"$PYTHON_PLATLIB",
		},
		writeRoots: []string{"$PWD"},
	}
	for _, opt := range opts {
		opt(&d)
	}

	toEntries := func(roots []string) []Entry {
		out := make([]Entry, 0, len(roots))
		for _, r := range roots {
			out = append(out, E(r))
		}
		return out
	}

	return &PermissionConfig{
		AllowRead:              toEntries(d.readRoots),
		AllowCreate:            toEntries(d.writeRoots),
		AllowModify:            toEntries(d.writeRoots),
		AllowDelete:            []Entry{},
		AllowEnvVarReads:       []string{},
		AllowEnvVarWrites:      []string{},
		AllowSystemCommands:    []string{},
		AllowExecutables:       []Entry{},
		AllowDomains:           []string{},
		AllowHTTPURLs:          []string{},
		AllowHTTPMethods:       []string{},
		AllowHTTPPayloadHashes: []PayloadHash{},
		AllowPyPIRequests:      true,
		LogInfoEvents:          true,
	}
}

// Clone returns a deep copy.
func (c *PermissionConfig) Clone() *PermissionConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.AllowRead = append([]Entry(nil), c.AllowRead...)
	clone.AllowCreate = append([]Entry(nil), c.AllowCreate...)
	clone.AllowModify = append([]Entry(nil), c.AllowModify...)
	clone.AllowDelete = append([]Entry(nil), c.AllowDelete...)
	clone.AllowEnvVarReads = append([]string(nil), c.AllowEnvVarReads...)
	clone.AllowEnvVarWrites = append([]string(nil), c.AllowEnvVarWrites...)
	clone.AllowSystemCommands = append([]string(nil), c.AllowSystemCommands...)
	clone.AllowExecutables = append([]Entry(nil), c.AllowExecutables...)
	clone.AllowDomains = append([]string(nil), c.AllowDomains...)
	clone.AllowHTTPURLs = append([]string(nil), c.AllowHTTPURLs...)
	clone.AllowHTTPMethods = append([]string(nil), c.AllowHTTPMethods...)
	clone.AllowHTTPPayloadHashes = append([]PayloadHash(nil), c.AllowHTTPPayloadHashes...)
	if c.Extra != nil {
		clone.Extra = make(map[string]any, len(c.Extra))
		for k, v := range c.Extra {
			clone.Extra[k] = v
		}
	}
	return &clone
}

// AddEntry appends e to the named entry category unless an identical entry
// is already present. It reports whether the config changed.
func (c *PermissionConfig) AddEntry(category string, e Entry) bool {
	list := c.entryList(category)
	if list == nil || containsEntry(*list, e) {
		return false
	}
	*list = append(*list, e)
	return true
}

// AddValue appends s to the named string category unless already present.
// Entry categories accept the value as an unpinned entry.
func (c *PermissionConfig) AddValue(category, s string) bool {
	if list := c.stringList(category); list != nil {
		if containsString(*list, s) {
			return false
		}
		*list = append(*list, s)
		return true
	}
	return c.AddEntry(category, E(s))
}

func (c *PermissionConfig) entryList(category string) *[]Entry {
	switch category {
	case CategoryRead:
		return &c.AllowRead
	case CategoryCreate:
		return &c.AllowCreate
	case CategoryModify:
		return &c.AllowModify
	case CategoryDelete:
		return &c.AllowDelete
	case CategoryExecutables:
		return &c.AllowExecutables
	}
	return nil
}

func (c *PermissionConfig) stringList(category string) *[]string {
	switch category {
	case CategoryEnvReads:
		return &c.AllowEnvVarReads
	case CategoryEnvWrites:
		return &c.AllowEnvVarWrites
	case CategorySystemCommands:
		return &c.AllowSystemCommands
	case CategoryDomains:
		return &c.AllowDomains
	case CategoryHTTPURLs:
		return &c.AllowHTTPURLs
	case CategoryHTTPMethods:
		return &c.AllowHTTPMethods
	}
	return nil
}

// KnownKeys lists the document keys understood by PermissionConfig.
func KnownKeys() []string {
	return []string{
		CategoryRead, CategoryCreate, CategoryModify, CategoryDelete,
		CategoryEnvReads, CategoryEnvWrites,
		CategorySystemCommands, CategoryExecutables,
		CategoryDomains, CategoryHTTPURLs, CategoryHTTPMethods, CategoryHTTPPayloadHashes,
		CategoryPyPIRequests, CategoryLogInfoEvents,
	}
}
