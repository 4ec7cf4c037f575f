package cvlibrary

const (
	loginPath        = "/recruiter/login"
	dashboardPath    = "/recruiter/"
	searchFormPath   = "/recruiter/candidate-search"
	searchResultPath = "/recruiter/candidate-search/results"
)

const (
	cookieBannerSelector = "#onetrust-accept-btn-handler"
	advancedToggle       = "button.toggle-quick-advanced"

	emailInput    = "input[type='email'], input[name='email'], #email"
	passwordInput = "input[type='password'], input[name='password'], #password"
	loginSubmit   = "input[type='submit'], button[type='submit']"
	loginError    = ".alert-danger, .error-message, .form-error, .notification--error, [role='alert']"

	keywordsInput = "input[name='keywords'], #keywords, input.boolean__input"
	locationInput = "input[name='towns'], input[name='location'], #location"
	searchSubmit  = "input[type='submit'][value='View results'], button[type='submit']:has-text('View results')"

	contactReveal = "a:has-text('View contact details'), button:has-text('View contact details')"
	downloadCVLink = "a[href*='/download-cv/'], a[href*='/download/'][target='_doc'], a.download-cv, .btn-download, a:has-text('Download CV')"
)

// Result rows, most specific first. The first selector that yields rows with a
// profile link wins.
var resultRowSelectors = []string{
	"#searchresults tbody tr",
	".search-results .search-result",
	".search-result",
	".candidate-result",
	".result-row",
}

var nextPageSelectors = []string{
	".pagination a[rel='next']",
	".pager a[rel='next']",
	".pagination a.next",
	".pager a.next",
	".pagination li.next a",
	"a[aria-label='Next']",
	"a[aria-label='Next page']",
}

// Optional search form controls, keyed by what they filter.
type formFilters struct {
	SalaryMin, SalaryMax, Distance, TimePeriod string
	MinimumMatch, SortOrder                    string
	JobType, Industry, Language                string
	Relocate, DrivingLicence, HideViewed       string
	MustHave, AnyWords, NoneWords              string
}

var filterSelectors = formFilters{
	SalaryMin:      "select[name='salarymin'], input[name='salarymin']",
	SalaryMax:      "select[name='salarymax'], input[name='salarymax']",
	Distance:       "select[name='distance']",
	TimePeriod:     "select[name='tempperiod'], select[name='posted']",
	MinimumMatch:   "select[name='minmatch']",
	SortOrder:      "select[name='order'], select[name='sort']",
	JobType:        "input[name='jobtype[]'], input[name='jobtype']",
	Industry:       "input[name='industry[]'], input[name='industry']",
	Language:       "input[name='languages[]'], input[name='languages']",
	Relocate:       "input[name='relocate']",
	DrivingLicence: "input[name='licence'], input[name='driving_licence']",
	HideViewed:     "input[name='hide_viewed'], input[name='hideviewed']",
	MustHave:       "input[name='must_have'], input[name='allwords']",
	AnyWords:       "input[name='any_words'], input[name='anywords']",
	NoneWords:      "input[name='none_words'], input[name='nowords']",
}
