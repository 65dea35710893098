package utils

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/smtp"
	"os"
	"runtime/debug"
	"strings"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func sendEmail(subject, body string, to []string) {
	// server and from/to
	host := getenv("ESTAT_SMTP_HOST", "localhost")
	port := getenv("ESTAT_SMTP_PORT", "25")
	from := getenv("ESTAT_SMTP_FROM", "estat-reader-noreply@localhost")

	header := make(map[string]string)
	header["From"] = from
	header["To"] = strings.Join(to, ",")
	header["Subject"] = subject
	header["MIME-Version"] = "1.0"
	header["Content-Type"] = "text/plain; charset=\"utf-8\""
	header["Content-Transfer-Encoding"] = "base64"
	message := ""
	for k, v := range header {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}

	body = body + "\n\n" + fmt.Sprintf("Ran with the following command:\n%s", strings.Join(os.Args, " "))
	message += "\r\n" + base64.StdEncoding.EncodeToString([]byte(body))

	err := smtp.SendMail(host+":"+port, nil, from, to, []byte(message))
	if err != nil {
		slog.Error(err.Error())
		return
	}
	slog.Info("Email sent successfully!")
}

// Sends an email with the stack trace if the calling function panics, then resumes the panic.
// Has to be deferred directly.
func SendEmailOnPanic(command string, recipients []string) {
	if r := recover(); r != nil {
		if recipients != nil {
			body := "estat_reader was unable to finish '" + command + "' and the error was not handled." +
				"\n\nError message:" +
				fmt.Sprint(r) +
				"\n\nStack trace:\n\n" +
				string(debug.Stack())
			sendEmail("estat_reader "+command+" panicked", body, recipients)
		}
		panic(r)
	}
}

// Sends a short report when a command failed with an error
func SendEmailOnError(command string, err error, recipients []string) {
	if err == nil || len(recipients) == 0 {
		return
	}
	sendEmail("estat_reader "+command+" failed", "Error message:\n"+err.Error(), recipients)
}
