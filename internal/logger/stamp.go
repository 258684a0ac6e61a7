package logger

import "time"

func nowStamp() string {
	return time.Now().Format("2006-01-02 15:04:05.000")
}
