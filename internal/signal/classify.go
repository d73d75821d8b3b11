// Package signal picks out the methods of interest in analyzed classes:
// those that load suspicious string constants or call sensitive platform
// APIs, plus the methods within a few call hops of them.
package signal

import (
	"math"
	"regexp"
	"slices"
	"strings"
)

// Categories assigned to strings and API calls.
const (
	CatURL           = "url"
	CatHost          = "host"
	CatEncryption    = "encryption"
	CatAuth          = "auth"
	CatNet           = "net"
	CatFile          = "file"
	CatBase64Key     = "base64"
	CatExec          = "exec"
	CatReflection    = "reflection"
	CatLoader        = "loader"
	CatNative        = "native"
	CatSerialization = "serialization"
	CatSIM           = "sim"
	CatSMS           = "sms"
	CatLocation      = "location"
	CatDeviceInfo    = "device"
	CatWebView       = "webview"
	CatBlockchain    = "blockchain"
)

// Severity levels.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

var (
	reURL       = regexp.MustCompile(`(?i)(https?|wss?|ftp|jdbc:[a-z]+)://`)
	reIPLiteral = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	reBase64    = regexp.MustCompile(`^[A-Za-z0-9+/=]{16,}$`)

	httpMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}

	fileExtensions = []string{
		".dex", ".jar", ".class", ".so", ".apk",
		".zip", ".db", ".sqlite", ".properties",
		".key", ".pem", ".crt", ".p12", ".jks", ".keystore",
		".sh", ".bat", ".js", ".py",
	}
)

// stringRule matches a string when its separator-free lowercase form
// contains one of keywords, or when re matches the raw value.
type stringRule struct {
	cat      string
	keywords []string
	re       *regexp.Regexp
}

// Short words are matched on word boundaries so "rsa" does not fire on
// "Traversal" nor "sim" on "similar".
var stringRules = []stringRule{
	{
		cat: CatEncryption,
		keywords: []string{
			"encrypt", "decrypt", "cipher", "pbkdf", "bcrypt", "scrypt",
			"signature", "digest", "hmacsha", "chacha", "blowfish", "nonce", "secretkey",
		},
		re: regexp.MustCompile(`(?i)(^|[^a-zA-Z])(aes|des|desede|rsa|ecdsa|hmac|sha1|sha-1|sha256|sha-256|sha512|md5|cbc|ecb|gcm|pkcs\d*|rc4|salt|iv)([^a-zA-Z]|$)`),
	},
	{
		cat: CatAuth,
		re:  regexp.MustCompile(`(?i)(^|[^a-zA-Z])(oauth|jwt|bearer|credentials?|passwd|apikey|api_key|api-key|authorization|authenticate)([^a-zA-Z]|$)`),
	},
	{
		cat: CatAuth,
		re:  regexp.MustCompile(`(?i)(^|[^a-z])(password|token|secret|login)([^a-z]|$)`),
	},
	{
		cat:      CatNet,
		keywords: []string{"socket", "connect", "proxy", "useragent"},
	},
	{
		cat:      CatExec,
		keywords: []string{"/bin/sh", "/system/bin", "chmod", "runtime.exec"},
		re:       regexp.MustCompile(`(^|[^a-zA-Z])(su|sh|cmd\.exe|powershell)$`),
	},
	{
		cat:      CatSIM,
		keywords: []string{"simcard", "imei", "imsi", "telephon", "subscriberid", "simoperator", "simserial"},
	},
	{
		cat:      CatSMS,
		keywords: []string{"sendsms", "readsms", "smsmanager"},
		re:       regexp.MustCompile(`(?i)(^|[^a-zA-Z])(sms|mms)([^a-zA-Z]|$)`),
	},
	{
		cat: CatLocation,
		keywords: []string{
			"geolocation", "geofence", "latitude", "longitude",
			"lastknownlocation", "locationmanager", "locationlistener", "fusedlocation",
		},
		re: regexp.MustCompile(`(?i)(^|[^a-zA-Z])(gps)([^a-zA-Z]|$)`),
	},
	{
		cat:      CatDeviceInfo,
		keywords: []string{"deviceid", "androidid", "serialnumber", "getinstalledpackages", "buildfingerprint"},
	},
	{
		cat: CatWebView,
		keywords: []string{
			"loadurl", "evaluatejavascript", "addjavascriptinterface",
			"webviewclient", "webchromeclient", "cookiemanager",
		},
		re: regexp.MustCompile(`(?i)(^|[^a-zA-Z])(webview|jsbridge)([^a-zA-Z]|$)`),
	},
	{
		cat: CatBlockchain,
		keywords: []string{
			"mnemonic", "seedphrase", "bip39", "privatekey", "keystore",
			"walletaddress", "ethereum", "bitcoin", "metamask",
		},
		re: regexp.MustCompile(`(?i)(^|[^a-zA-Z])(wallet|web3)([^a-zA-Z]|$)`),
	},
}

// ClassifyString returns the categories a string constant falls in, or
// nil when it carries no signal.
func ClassifyString(value string) []string {
	if len(value) < 2 {
		return nil
	}
	var cats []string
	add := func(c string) {
		if !slices.Contains(cats, c) {
			cats = append(cats, c)
		}
	}

	if reURL.MatchString(value) {
		add(CatURL)
	}
	if reIPLiteral.MatchString(value) {
		add(CatHost)
	}
	norm := normalizeForMatch(value)
	for _, r := range stringRules {
		if containsAny(norm, r.keywords) || (r.re != nil && r.re.MatchString(value)) {
			add(r.cat)
		}
	}
	if slices.Contains(httpMethods, value) {
		add(CatNet)
	}
	lower := strings.ToLower(value)
	for _, ext := range fileExtensions {
		if strings.HasSuffix(lower, ext) || strings.Contains(lower, ext+" ") {
			add(CatFile)
			break
		}
	}
	trimmed := strings.TrimSpace(value)
	if reBase64.MatchString(trimmed) && entropy(trimmed) > 3.5 && !isCamelCase(trimmed) {
		add(CatBase64Key)
	}
	return cats
}

// apiRule tags calls whose callee key starts with prefix.
type apiRule struct {
	prefix string
	cat    string
}

var apiRules = []apiRule{
	{"java.net.URLClassLoader.", CatLoader},
	{"java.net.", CatNet},
	{"javax.net.", CatNet},
	{"okhttp3.", CatNet},
	{"android.net.", CatNet},
	{"javax.crypto.", CatEncryption},
	{"java.security.", CatEncryption},
	{"java.lang.Runtime.exec(", CatExec},
	{"java.lang.ProcessBuilder.", CatExec},
	{"java.lang.reflect.", CatReflection},
	{"java.lang.invoke.MethodHandles", CatReflection},
	{"java.lang.Class.forName(", CatReflection},
	{"java.lang.Class.getDeclaredMethod(", CatReflection},
	{"java.lang.Class.getMethod(", CatReflection},
	{"java.lang.Class.getDeclaredField(", CatReflection},
	{"java.lang.ClassLoader.", CatLoader},
	{"dalvik.system.", CatLoader},
	{"java.lang.System.loadLibrary(", CatNative},
	{"java.lang.System.load(", CatNative},
	{"java.lang.Runtime.loadLibrary(", CatNative},
	{"java.io.File", CatFile},
	{"java.nio.file.", CatFile},
	{"java.io.ObjectInputStream.", CatSerialization},
	{"android.telephony.SmsManager.", CatSMS},
	{"android.telephony.", CatSIM},
	{"android.location.", CatLocation},
	{"android.provider.Settings$Secure.", CatDeviceInfo},
	{"android.webkit.", CatWebView},
}

// ClassifyCallee returns the category of a call target key
// ("owner.name(desc)"), or "" when the callee is not sensitive. The first
// matching rule wins.
func ClassifyCallee(callee string) string {
	for _, r := range apiRules {
		if strings.HasPrefix(callee, r.prefix) {
			return r.cat
		}
	}
	return ""
}

// CategorySeverity returns the severity of a category.
func CategorySeverity(cat string) string {
	switch cat {
	case CatEncryption, CatAuth, CatExec, CatLoader, CatNative, CatSerialization,
		CatSIM, CatSMS, CatWebView, CatBlockchain:
		return SeverityHigh
	case CatURL, CatHost, CatBase64Key, CatReflection, CatLocation, CatDeviceInfo:
		return SeverityMedium
	}
	return SeverityLow
}

// MaxSeverity returns the highest severity among categories. An empty
// list is low.
func MaxSeverity(categories []string) string {
	best := SeverityLow
	for _, c := range categories {
		switch CategorySeverity(c) {
		case SeverityHigh:
			return SeverityHigh
		case SeverityMedium:
			best = SeverityMedium
		}
	}
	return best
}

// isCamelCase reports a lower-to-upper transition ("checkSimCard").
func isCamelCase(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] >= 'a' && s[i-1] <= 'z' && s[i] >= 'A' && s[i] <= 'Z' {
			return true
		}
	}
	return false
}

// normalizeForMatch lowercases s and drops '_', '-', ' ' and '.', so
// "getDeviceId", "get_device_id" and "device id" share a form.
func normalizeForMatch(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ', '.':
			return -1
		}
		return r
	}, strings.ToLower(s))
}

func containsAny(norm string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(norm, kw) {
			return true
		}
	}
	return false
}

// entropy is the Shannon entropy of s in bits per byte.
func entropy(s string) float64 {
	if s == "" {
		return 0
	}
	var freq [256]int
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	n := float64(len(s))
	var h float64
	for _, c := range freq {
		if c > 0 {
			p := float64(c) / n
			h -= p * math.Log2(p)
		}
	}
	return h
}
