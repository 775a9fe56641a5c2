// Package email sends rendered notification emails.
//
// EmailSender has two implementations: the Postmark client for production
// and DevSender, which writes each message to disk for local inspection.
// NewSender picks one from Config:
//
//	sender, err := email.NewSender(cfg)
//	if err != nil {
//	    return err
//	}
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   "fan@example.com",
//	    Subject:  "New song from your favourite artist",
//	    BodyHTML: body,
//	    Tag:      "new_song_email",
//	})
//
// Invalid parameters fail with ErrInvalidParams before any network call.
// Provider failures wrap ErrFailedToSendEmail.
package email
