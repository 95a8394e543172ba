package session

// Config holds the authenticated catalog session settings.
type Config struct {
	// CookieFile persists cookies between runs.
	CookieFile string `mapstructure:"cookie_file" default:"session_cookies.json"`
	// HomeURL is probed to check whether the session is logged in.
	HomeURL string `mapstructure:"home_url" default:"https://exampapers.ed.ac.uk/"`
	// LoginURL is loaded first so the identity provider sets its cookies.
	LoginURL string `mapstructure:"login_url" default:"https://www.ease.ed.ac.uk/"`
	// LoginPostURL receives the credentials form.
	LoginPostURL string `mapstructure:"login_post_url" default:"https://www.ease.ed.ac.uk/cosign.cgi"`
	// SAMLPostURL receives the SAML assertion on the catalog side.
	SAMLPostURL string `mapstructure:"saml_post_url" default:"https://exampapers.ed.ac.uk/Shibboleth.sso/SAML2/POST"`
	// SignInHost is the identity provider host an unauthenticated probe ends up on.
	SignInHost string `mapstructure:"sign_in_host" default:"edadfed.ed.ac.uk"`
	// Interactive allows prompting for credentials when the session is not logged in.
	Interactive bool `mapstructure:"interactive" default:"true"`
}
