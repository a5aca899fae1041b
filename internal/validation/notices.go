package validation

// Notice is the text shown for a message code.
type Notice struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

var notices = map[string]Notice{
	CodeSuccess:           {true, "Done successfully !"},
	CodeError:             {false, "There was an error. Please try again."},
	CodeInvalidNonce:      {false, "Your session expired. Please reload the page and try again."},
	CodeUnauthorized:      {false, "You are not allowed to do that."},
	CodeMissingField:      {false, "Please fill in all the required fields"},
	CodeInvalidEmail:      {false, "The email provided is not valid."},
	CodeAlreadyRegistered: {false, "This user is already registered."},
	CodeInvalidFileType:   {false, "The file you're trying to upload is invalid."},
	CodeFileTooLarge:      {false, "The file you're trying to upload is too large."},
	CodeUploadError:       {false, "Some files could not be uploaded. Please try again."},
	CodeNoAgreement:       {false, "It looks like you don't agree with our privacy policy."},
	CodeSignupFailed:      {false, "There was a problem with your account submission. Please try again."},
	CodeSignupSuccess:     {true, "You've successfully signed up. You're ready to submit your first project !"},
	CodeLoginFailed:       {false, "Sorry, there was a problem. We couldn't log you in. Please try again."},
	CodeLoginSuccess:      {true, "You've successfully logged in. Now you can submit your project"},
	CodeLogoutSuccess:     {true, "You're successfully logged out."},
	CodeSubmissionSuccess: {true, "Your project was submitted successfully !"},
	CodeSubmissionFailed:  {false, "There was a problem with your submission. Please try again."},
	CodeErrorDownloading:  {false, "The file could not be downloaded. Please try again."},
}

// NoticeFor returns the notice of code, or the generic error notice.
func NoticeFor(code string) Notice {
	if n, ok := notices[code]; ok {
		return n
	}
	return notices[CodeError]
}
