package auth

// Messages returned in Result.Message
const (
	MsgMissingCredentials = "Please enter both email and password."
	MsgInvalidEmail       = "Please enter a valid email address."
	MsgMissingFields      = "Please fill in all required fields."
	MsgInvalidLogin       = "Invalid email or password."
	MsgLoginError         = "An error occurred during login."
	MsgUserExists         = "A user with this email already exists."
	MsgRegisterError      = "An error occurred during registration."
	MsgCodeNotSent        = "Registration successful, but the verification code could not be sent."
	MsgOTPSent            = "An OTP has been sent to your email."
	MsgOTPResetVerified   = "OTP verified. You can now reset your password."
	MsgOTPInvalid         = "Invalid OTP. Please try again."
	MsgOTPResent          = "New OTP sent successfully!"
	MsgOTPThrottled       = "Please wait before requesting another OTP."
	MsgOTPResendError     = "Failed to resend OTP."
	MsgOTPRequestError    = "An error occurred while sending the OTP."
	MsgRegistrationDone   = "Registration successful. You can now log in."
	MsgUserNotFound       = "User not found."
	MsgPasswordReset      = "Password has been reset successfully."
	MsgPasswordResetError = "An error occurred during password reset."
	MsgNotLoggedIn        = "No user is logged in."
	MsgAccountDeleted     = "Account deleted successfully."
	MsgDeleteError        = "Failed to delete account."
	MsgTrialUsed          = "You have already used your free trial."
	MsgTrialError         = "Failed to start trial."
	MsgSubscribeError     = "Subscription failed."
	MsgForbidden          = "You do not have access to this page."
	MsgListUsersError     = "Failed to load users."
)
