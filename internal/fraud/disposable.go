package fraud

// defaultDisposableDomains is the built-in registry of throwaway mail providers.
// Operators extend it with FRAUD_DISPOSABLE_DOMAINS_FILE.
var defaultDisposableDomains = []string{
	"10minutemail.com",
	"10minutemail.net",
	"burnermail.io",
	"dispostable.com",
	"emailondeck.com",
	"fakeinbox.com",
	"getairmail.com",
	"getnada.com",
	"guerrillamail.biz",
	"guerrillamail.com",
	"guerrillamail.de",
	"guerrillamail.net",
	"guerrillamail.org",
	"guerrillamailblock.com",
	"harakirimail.com",
	"jetable.org",
	"mailcatch.com",
	"maildrop.cc",
	"mailinator.com",
	"mailinator.net",
	"mailnesia.com",
	"mintemail.com",
	"mohmal.com",
	"mytemp.email",
	"sharklasers.com",
	"spam4.me",
	"spamgourmet.com",
	"temp-mail.io",
	"temp-mail.org",
	"tempail.com",
	"tempmail.com",
	"tempmail.net",
	"tempmailo.com",
	"tempr.email",
	"throwawaymail.com",
	"trashmail.com",
	"trashmail.de",
	"trashmail.net",
	"yopmail.com",
	"yopmail.fr",
	"yopmail.net",
}

// disposableKeywords catch provider families that rotate their domains.
var disposableKeywords = []string{
	"10minutemail",
	"fakeinbox",
	"guerrillamail",
	"mailinator",
	"tempmail",
	"throwaway",
	"trashmail",
	"yopmail",
}
