package classify

// Keywords lists the raw phrases behind each signal. An empty list selects
// the built-in default for that signal.
type Keywords struct {
	Area           []string `mapstructure:"area"`
	Junior         []string `mapstructure:"junior"`
	Senior         []string `mapstructure:"senior"`
	GeoBlock       []string `mapstructure:"geo_block"`
	GeoAllow       []string `mapstructure:"geo_allow"`
	Spam           []string `mapstructure:"spam"`
	Urgency        []string `mapstructure:"urgency"`
	Certifications []string `mapstructure:"certifications"`
	CertAllowlist  []string `mapstructure:"cert_allowlist"`
	Skills         []string `mapstructure:"skills"`
}

// Config is the filter section of the application config.
type Config struct {
	Keywords   Keywords `mapstructure:"keywords"`
	Experience struct {
		MaxYears int `mapstructure:"max_years"`
	} `mapstructure:"experience"`
	Certifications struct {
		Max int `mapstructure:"max"`
	} `mapstructure:"certifications"`
	Level struct {
		RejectUnspecified bool `mapstructure:"reject_unspecified"`
	} `mapstructure:"level"`
}

// Title length bounds in runes.
const (
	MinTitleRunes = 5
	MaxTitleRunes = 150
)

// Default thresholds.
const (
	DefaultMaxExperienceYears = 2
	DefaultMaxCertifications  = 2
)

// Rules is the immutable input to a Filter.
type Rules struct {
	Area           Signal
	Junior         Signal
	Senior         Signal
	GeoBlock       Signal
	GeoAllow       Signal
	Spam           Signal
	Urgency        Signal
	Certifications Signal
	CertAllowlist  Signal
	Skills         Signal

	MaxExperienceYears int
	// MaxCertifications <= 0 disables the certification check.
	MaxCertifications int
	RejectUnspecified bool
}

// DefaultRules returns the built-in phrase lists and thresholds.
func DefaultRules() Rules {
	return NewRules(Config{}, DefaultMaxExperienceYears, DefaultMaxCertifications, true)
}

// RulesFromConfig builds Rules from the filter config section.
func RulesFromConfig(cfg Config) Rules {
	return NewRules(cfg, cfg.Experience.MaxYears, cfg.Certifications.Max, cfg.Level.RejectUnspecified)
}

// NewRules builds Rules from keyword overrides and explicit thresholds.
func NewRules(cfg Config, maxYears, maxCerts int, rejectUnspecified bool) Rules {
	k := cfg.Keywords
	return Rules{
		Area:               phrasesOr(k.Area, defaultArea),
		Junior:             phrasesOr(k.Junior, defaultJunior),
		Senior:             phrasesOr(k.Senior, defaultSenior),
		GeoBlock:           phrasesOr(k.GeoBlock, defaultGeoBlock),
		GeoAllow:           phrasesOr(k.GeoAllow, defaultGeoAllow),
		Spam:               phrasesOr(k.Spam, defaultSpam),
		Urgency:            phrasesOr(k.Urgency, defaultUrgency),
		Certifications:     phrasesOr(k.Certifications, defaultCertifications),
		CertAllowlist:      phrasesOr(k.CertAllowlist, defaultCertAllowlist),
		Skills:             phrasesOr(k.Skills, defaultSkills),
		MaxExperienceYears: maxYears,
		MaxCertifications:  maxCerts,
		RejectUnspecified:  rejectUnspecified,
	}
}

func phrasesOr(custom, fallback []string) PhraseSet {
	if len(custom) > 0 {
		return NewPhraseSet(custom...)
	}
	return NewPhraseSet(fallback...)
}

var defaultArea = []string{
	"it support", "tech support", "technical support", "it helpdesk",
	"desktop support", "it technician", "it specialist",
	"service desk", "servicedesk", "help desk", "helpdesk",
	"noc analyst", "noc technician", "noc engineer", "noc specialist",
	"network operations", "network monitoring", "network analyst",
	"monitoring analyst", "monitoring technician", "monitoring engineer",
	"infrastructure monitoring",
	"soc tier 1", "soc level 1", "soc l1", "soc analyst",
	"security operations", "security monitoring", "cybersecurity analyst",
	"incident response", "blue team", "threat analyst",
	"sysadmin", "system administrator", "systems administrator",
	"system admin", "systems admin", "windows admin",
	"linux support", "linux administrator", "linux technician",
	"linux engineer", "linux admin",
	"infrastructure support", "infrastructure technician", "infrastructure analyst",
	"support engineer", "support technician", "support analyst",
	"support specialist", "technical analyst",
	"tier 1", "tier 2", "tier i ", "tier ii ",
	"level 1", "level 2", "l1 support", "l2 support",
	"t1 support", "t2 support",
}

var defaultJunior = []string{
	"entry level", "entry-level", "entry",
	"junior", " jr ", " jr.", " jnr ", " jnr.",
	"beginner", "iniciante", "trainee", "internship",
	"associate", "assistant",
	"graduate", "new grad", "recent grad",
	"early career", "career starter",
	"no experience", "without experience", "0 years",
	"0-1 year", "0-2 years", "up to 2 years",
	"little experience", "minimal experience",
}

var defaultSenior = []string{
	"senior", " sr ", " sr.",
	"lead", "team lead",
	"manager", "director", "head of", "chief",
	"principal", "architect", "coordinator", "supervisor",
	"staff engineer", "staff support",
	"expert", "specialist iii", "specialist iv",
}

var defaultGeoBlock = []string{
	"must be located", "must reside", "must be based", "must be in", "must live",
	"based in", "located in", "residing in", "local to", "commutable",
	"hybrid", "hibrido", "on-site", "onsite", "on site",
	"in-office", "in office", "presencial",
	"preferred location", "timezone required", "time zone required",
	"not hiring outside", "eligible to work in", "work authorization",
	"texas", "california", "new york", "florida", "iowa",
	"massachusetts", "washington state",
	"san antonio", "san francisco", "austin", "seattle", "boston", "miami",
	"us only", "usa only", "uk only", "eu only",
	"mexico only", "canada only", "india only",
}

var defaultGeoAllow = []string{
	"worldwide", "global", "international", "anywhere", "remote anywhere",
	"work from anywhere", "location independent", "fully remote",
	"100% remote", "remote first", "remoto", "home office",
	"brazil", "brasil", "latam", "latin america",
}

var defaultSpam = []string{
	"template", "example", "sample", "demo",
	"how to", "guide", "tutorial", "about us",
	"test job", "mock job",
}

var defaultUrgency = []string{
	"urgent", "asap", "immediate", "start now", "starting now",
	"quick start", "fast start", "hiring now", "available now",
	"begin immediately", "contratacao imediata", "inicio imediato",
}

var defaultCertifications = []string{
	"ccna", "ccnp", "cissp", "cism", "ceh",
	"comptia a+", "comptia network+", "comptia security+",
	"aws certified", "azure certified", "gcp certified",
	"itil", "prince2", "pmp",
}

var defaultCertAllowlist = []string{
	"google", "microsoft", "amazon", "meta", "facebook",
	"apple", "netflix", "uber", "airbnb", "twitter",
	"linkedin", "salesforce", "oracle", "ibm", "cisco",
}

var defaultSkills = []string{
	"splunk", "siem", "python", "linux", "ubuntu", "kali",
	"active directory", "windows server", "tcp/ip", "firewall",
	"vpn", "wireshark", "phishing", "malware",
	"nmap", "burp", "metasploit", "endpoint",
}
