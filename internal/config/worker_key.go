package config

type WorkerKeyStruct struct {
	AnswerCacheQueue string
}

var WorkerKey = &WorkerKeyStruct{
	AnswerCacheQueue: "answer_cache_queue",
}
