package user

// DemoPassword opens every demo account when demo accounts are enabled.
const DemoPassword = "demo123"

type demoAccount struct {
	ID    string
	Name  string
	Email string
	Roles []string
}

var demoAccounts = []demoAccount{
	{ID: "demo_student", Name: "Demo Student", Email: "student@demo.com", Roles: []string{RoleStudent}},
	{ID: "demo_teacher", Name: "Demo Teacher", Email: "teacher@demo.com", Roles: []string{RoleTeacher}},
	{ID: "demo_admin", Name: "Demo Admin", Email: "admin@demo.com", Roles: []string{RoleAdmin}},
	{ID: "demo_user", Name: "Demo User", Email: "demo@lms.com", Roles: []string{RoleStudent}},
}

func findDemoAccount(email string) (demoAccount, bool) {
	for _, acct := range demoAccounts {
		if acct.Email == email {
			return acct, true
		}
	}
	return demoAccount{}, false
}

// DemoEmails lists the demo account emails, for login hints.
func DemoEmails() []string {
	emails := make([]string, 0, len(demoAccounts))
	for _, acct := range demoAccounts {
		emails = append(emails, acct.Email)
	}
	return emails
}
