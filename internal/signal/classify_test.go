package signal

import (
	"slices"
	"testing"
)

func expectCat(t *testing.T, cat string, values ...string) {
	t.Helper()
	for _, s := range values {
		if cats := ClassifyString(s); !slices.Contains(cats, cat) {
			t.Errorf("ClassifyString(%q) = %v, want %s", s, cats, cat)
		}
	}
}

func rejectCat(t *testing.T, cat string, values ...string) {
	t.Helper()
	for _, s := range values {
		if cats := ClassifyString(s); slices.Contains(cats, cat) {
			t.Errorf("ClassifyString(%q) = %v, should not be %s", s, cats, cat)
		}
	}
}

func TestClassifyURL(t *testing.T) {
	expectCat(t, CatURL, "https://api.example.com/oauth/accessToken", "jdbc:mysql://db:3306/app")
	expectCat(t, CatAuth, "https://api.example.com/oauth/accessToken")
}

func TestClassifyCrypto(t *testing.T) {
	expectCat(t, CatEncryption,
		"AES/CBC/PKCS5Padding", "SHA-256", "HmacSHA256", "encrypt",
		"RSA/ECB/OAEPPadding", "PBKDF2WithHmacSHA1", "Nonce must be 12 bytes", "MD5")
	rejectCat(t, CatEncryption, "skipTraversal", "FocusTraversalPolicy", "description", "activity")
}

func TestClassifyAuth(t *testing.T) {
	expectCat(t, CatAuth, "password", "Bearer token", "jwt", "apikey", "Authorization")
	rejectCat(t, CatAuth, "brieflyShowPassword", "tokenizer")
}

func TestClassifyNet(t *testing.T) {
	expectCat(t, CatNet, "GET", "POST", "socket connection", "User-Agent")
	rejectCat(t, CatNet, "GETTER")
}

func TestClassifyFile(t *testing.T) {
	expectCat(t, CatFile, "classes.dex", "config.properties", "payload.jar loaded")
}

func TestClassifyBase64Key(t *testing.T) {
	expectCat(t, CatBase64Key, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/==")
	rejectCat(t, CatBase64Key, "aaaaaaaaaaaaaaaaaaaa", "checkSimCardStatusNow")
}

func TestClassifyExec(t *testing.T) {
	expectCat(t, CatExec, "/system/bin/sh", "su", "chmod 755 ")
	rejectCat(t, CatExec, "ssh", "flush")
}

func TestClassifyMobile(t *testing.T) {
	expectCat(t, CatSIM, "checkSimCard", "IMEI", "sim_operator")
	rejectCat(t, CatSIM, "similar results")
	expectCat(t, CatSMS, "send_sms", "SmsManager", "SMS log")
	expectCat(t, CatLocation, "lastKnownLocation", "GPS coordinates", "geofence")
	rejectCat(t, CatLocation, "FloatingActionButtonLocation.endFloat")
	expectCat(t, CatDeviceInfo, "android_id", "getDeviceId")
	expectCat(t, CatWebView, "addJavascriptInterface", "WebView")
	expectCat(t, CatBlockchain, "mnemonic phrase", "wallet")
}

func TestClassifyMundane(t *testing.T) {
	for _, s := range []string{"Index out of range", "x", "", "hello world"} {
		if cats := ClassifyString(s); len(cats) != 0 {
			t.Errorf("ClassifyString(%q) = %v, want none", s, cats)
		}
	}
}

func TestClassifyIP(t *testing.T) {
	expectCat(t, CatHost, "192.168.1.1:8080")
}

func TestClassifyCallee(t *testing.T) {
	tests := []struct {
		callee string
		want   string
	}{
		{"java.net.URL.openConnection()Ljava/net/URLConnection;", CatNet},
		{"java.net.URLClassLoader.<init>([Ljava/net/URL;)V", CatLoader},
		{"javax.crypto.Cipher.getInstance(Ljava/lang/String;)Ljavax/crypto/Cipher;", CatEncryption},
		{"java.lang.Runtime.exec(Ljava/lang/String;)Ljava/lang/Process;", CatExec},
		{"java.lang.Class.forName(Ljava/lang/String;)Ljava/lang/Class;", CatReflection},
		{"java.lang.System.loadLibrary(Ljava/lang/String;)V", CatNative},
		{"java.io.FileOutputStream.<init>(Ljava/lang/String;)V", CatFile},
		{"android.telephony.SmsManager.getDefault()Landroid/telephony/SmsManager;", CatSMS},
		{"android.telephony.TelephonyManager.getDeviceId()Ljava/lang/String;", CatSIM},
		{"java.lang.System.currentTimeMillis()J", ""},
		{"java.lang.String.length()I", ""},
		{"#12", ""},
	}
	for _, tt := range tests {
		if got := ClassifyCallee(tt.callee); got != tt.want {
			t.Errorf("ClassifyCallee(%q) = %q, want %q", tt.callee, got, tt.want)
		}
	}
}

func TestMaxSeverity(t *testing.T) {
	tests := []struct {
		cats []string
		want string
	}{
		{nil, SeverityLow},
		{[]string{CatNet, CatFile}, SeverityLow},
		{[]string{CatNet, CatURL}, SeverityMedium},
		{[]string{CatFile, CatExec, CatURL}, SeverityHigh},
	}
	for _, tt := range tests {
		if got := MaxSeverity(tt.cats); got != tt.want {
			t.Errorf("MaxSeverity(%v) = %s, want %s", tt.cats, got, tt.want)
		}
	}
}

func TestEntropy(t *testing.T) {
	if got := entropy("aaaa"); got != 0 {
		t.Errorf("entropy(aaaa) = %v, want 0", got)
	}
	if got := entropy("abcd"); got != 2 {
		t.Errorf("entropy(abcd) = %v, want 2", got)
	}
}
