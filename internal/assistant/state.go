package assistant

// State is the single interaction phase the machine is in. Exactly one
// value is active at a time and the machine's run loop is the only writer.
type State int

const (
	// StateIdle is the initial state, before the capture session has been
	// acquired, and the fallback state when the capture session is lost.
	StateIdle State = iota

	// StateListening means the capture session is live and the machine is
	// waiting for a trigger (hotword, manual press, or voice energy).
	StateListening

	// StateRecording means one episode's audio is being accumulated under
	// voice activity detection.
	StateRecording

	// StateProcessing covers the transcribe, chat and synthesize steps of
	// an episode.
	StateProcessing

	// StatePlaying means the reply is being played back.
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// TriggerMode selects how a recording episode is started from Listening.
type TriggerMode string

const (
	// TriggerManual starts episodes only via Trigger().
	TriggerManual TriggerMode = "manual"

	// TriggerHotword starts episodes on a wake phrase detection, in
	// addition to Trigger().
	TriggerHotword TriggerMode = "hotword"

	// TriggerVADAuto starts episodes as soon as voice energy is heard
	// while Listening, in addition to Trigger().
	TriggerVADAuto TriggerMode = "vad-auto"
)

// PlaybackSink selects how a reply becomes audible.
type PlaybackSink string

const (
	// SinkRemoteSynthesis fetches the reply audio from the exchange's
	// synthesis endpoint and hands the payload to the player.
	SinkRemoteSynthesis PlaybackSink = "remote-synthesis"

	// SinkLocalSynthesis hands the reply text to the player, which
	// synthesizes on the device.
	SinkLocalSynthesis PlaybackSink = "local-synthesis"
)

// User-visible status messages. The assistant speaks Italian.
const (
	statusIdle          = "Premi il microfono per parlare"
	statusRecording     = "Ascolto in corso..."
	statusProcessing    = "⏳ Trascrizione in corso..."
	statusPlaying       = "🗣️ Risposta vocale in corso..."
	statusReady         = "✅ Pronto per nuova conversazione"
	statusNoVoice       = "❌ Nessuna voce rilevata."
	statusNoReply       = "Nessuna risposta disponibile."
	statusTranscribeErr = "❌ Errore durante la trascrizione."
	statusChatErr       = "❌ Errore di comunicazione con l'assistente."
	statusSynthesisErr  = "❌ Errore nella sintesi vocale."
	statusPlaybackErr   = "❌ Errore durante la riproduzione audio."
	statusTapToEnable   = "Tocca per abilitare l'audio."
	statusNoPermission  = "Microfono non autorizzato. Riprova per consentire l'accesso."
	statusNoDevice      = "Nessun microfono rilevato."
	statusUnsupported   = "Microfono non supportato su questo dispositivo."
	statusCaptureLost   = "Microfono disconnesso. Premi il microfono per riattivarlo."
	statusHotwordOff    = "Attivazione vocale non disponibile. Usa il microfono."
)
