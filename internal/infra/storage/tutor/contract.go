package tutor

import "github.com/m04kA/SMC-TutoringService/pkg/dbmetrics"

type DBExecutor = dbmetrics.DBExecutor
