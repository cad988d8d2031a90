package core

import "strings"

// advisorRule maps input keywords to a canned reply. Rules are evaluated in
// order; the first keyword match wins.
type advisorRule struct {
	keywords []string
	reply    string
}

var advisorRules = []advisorRule{
	{
		keywords: []string{"budget"},
		reply: "A great way to budget is the 50/30/20 rule: 50% of your income for needs (rent, bills), " +
			"30% for wants (hobbies, dining out), and 20% for savings and debt repayment. " +
			"Would you like to know more about setting one up?",
	},
	{
		keywords: []string{"saving", "save money"},
		reply: "To save more effectively, consider automating your savings. You can set up automatic " +
			"transfers to a high-yield savings account each payday. Also, cutting down on small, " +
			"frequent expenses like daily coffee can make a big difference over time.",
	},
	{
		keywords: []string{"invest"},
		reply: "For beginners, investing in low-cost index funds or ETFs is a popular strategy. " +
			"They offer diversification and are generally less risky than individual stocks. " +
			"It's always a good idea to consult a financial advisor for personalized advice.",
	},
	{
		keywords: []string{"debt"},
		reply: "There are two popular methods for tackling debt: the 'Avalanche' method (paying off " +
			"high-interest debts first) and the 'Snowball' method (paying off the smallest debts " +
			"first for motivation). Which one sounds more appealing to you?",
	},
	{
		keywords: []string{"credit score"},
		reply: "Improving your credit score involves paying bills on time, keeping your credit card " +
			"balances low, and avoiding opening too many new accounts at once. A higher score can " +
			"get you better loan rates.",
	},
}

// AdvisorFallback is returned when no keyword matches.
const AdvisorFallback = "I can help with questions about budgeting, saving, investing, and managing debt. " +
	"How can I assist you with your finances?"

// AdvisorReply returns the canned financial-advice reply for a chat message.
// Matching is case-insensitive substring search, not a reasoning component.
func AdvisorReply(input string) string {
	in := strings.ToLower(input)
	for _, rule := range advisorRules {
		for _, kw := range rule.keywords {
			if strings.Contains(in, kw) {
				return rule.reply
			}
		}
	}
	return AdvisorFallback
}
