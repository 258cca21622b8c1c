package models

import "gorm.io/gorm"

// SeedDefaults installs the default follow-up sequence and the AI
// settings row on a fresh database. FirstOrCreate keeps reruns safe.
func SeedDefaults(db *gorm.DB) error {
	defaultTemplates := []FollowUpTemplate{
		{
			SequenceNumber: 1,
			Name:           "Gentle nudge",
			EmailSubject:   "Checking in on your {{program}} quote",
			EmailBody: "Hi {{first_name}},\n\nJust checking in on the quote we sent over for " +
				"{{program}} at {{school}}. With your discount you would pay {{discount_rate}} " +
				"instead of {{standard_rate}} - a savings of {{savings}}.\n\nHappy to answer any questions!",
			SMSBody: "Hi {{first_name}}, just checking you received our {{program}} quote for {{school}}. Reply here with any questions!",
		},
		{
			SequenceNumber: 2,
			Name:           "Value reminder",
			EmailSubject:   "Your {{season}} season and {{program}}",
			EmailBody: "Hi {{first_name}},\n\nPlanning for {{season}} fills up fast. Your quote for " +
				"{{performer_count}} performers is still open, and the discounted rate of {{discount_rate}} " +
				"is locked in until {{deadline}}.",
			SMSBody: "Hi {{first_name}}, your {{program}} discount of {{savings}} is held until {{deadline}}. Let us know!",
		},
		{
			SequenceNumber: 3,
			Name:           "Deadline warning",
			EmailSubject:   "Quote for {{school}} expires soon",
			EmailBody: "Hi {{first_name}},\n\nA quick heads up that the quoted rate for {{program}} " +
				"expires on {{deadline}}. After that we can't guarantee the {{discount_rate}} pricing.",
			SMSBody: "Reminder: your {{program}} quote for {{school}} expires {{deadline}}.",
		},
		{
			SequenceNumber: 4,
			Name:           "Final notice",
			EmailSubject:   "Last call for {{program}}",
			EmailBody: "Hi {{first_name}},\n\nThis is our last note about the {{program}} quote for " +
				"{{school}}. If the timing isn't right this {{season}}, no problem at all - just reply " +
				"and we'll close the file.",
			SMSBody: "Last call on your {{program}} quote - reply to keep it open or we'll close it out.",
		},
	}

	for _, tpl := range defaultTemplates {
		if err := db.FirstOrCreate(&tpl, "sequence_number = ?", tpl.SequenceNumber).Error; err != nil {
			return err
		}
	}

	// AI generation ships disabled until an operator turns it on.
	var count int64
	if err := db.Model(&AISettings{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return db.Create(&AISettings{Enabled: false, PrimaryModelProvider: "GEMINI"}).Error
	}
	return nil
}
