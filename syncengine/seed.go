package syncengine

import (
	"time"

	"connectme/models"
)

type starter struct {
	id           string
	title        string
	content      string
	category     models.Category
	campus       models.Campus
	date         string
	participants int
	x, y         float64
	ageDays      int
}

// Стартовый набор для пустого хранилища: все категории, оба кампуса,
// разный "возраст" записей.
var starters = []starter{
	{"1", "Gruppo Studio Analisi", "Cerco compagni per studiare Analisi 1 in preparazione dell'esame di gennaio. Disponibile tutti i pomeriggi in biblioteca.", models.CategoryStudio, models.CampusLeonardo, "15 Dicembre, 14:30", 4, 50, 50, 25},
	{"2", "Aperitivo di Natale", "Aperitivo pre-natalizio per tutti gli studenti! Ci vediamo al bar del campus per festeggiare insieme.", models.CategorySocial, models.CampusLeonardo, "18 Dicembre, 18:00", 12, 350, 80, 2},
	{"3", "Torneo Calcetto", "Torneo di calcetto amichevole. Cerchiamo altre squadre interessate a partecipare!", models.CategorySport, models.CampusBovisa, "20 Dicembre, 15:00", 8, 680, 120, 15},
	{"4", "Laboratorio Arduino", "Workshop su Arduino e IoT. Portate il vostro laptop! Esperienza base richiesta.", models.CategoryStudio, models.CampusBovisa, "17 Dicembre, 10:00", 6, 120, 380, 5},
	{"5", "Sessione Yoga", "Yoga per studenti stressati! Sessione gratuita di rilassamento prima degli esami.", models.CategorySport, models.CampusLeonardo, "16 Dicembre, 17:30", 10, 450, 340, 10},
	{"6", "Scambio Appunti Fisica", "Ho appunti completi di Fisica 2, cerco appunti di Elettronica per scambio.", models.CategoryStudio, models.CampusLeonardo, "", 2, 750, 400, 1},
	{"7", "Film Night", "Serata cinema all'aula magna. Votate il film che volete vedere!", models.CategorySocial, models.CampusBovisa, "19 Dicembre, 20:00", 15, 200, 600, 7},
	{"8", "Corsa Mattutina", "Gruppo di running mattutino. Partiamo dal campus alle 7:00, percorso 5km.", models.CategorySport, models.CampusLeonardo, "", 5, 520, 580, 30},
	{"9", "Ripetizioni Matematica", "Offro ripetizioni di matematica per studenti del primo anno. Esperienza pluriennale.", models.CategoryStudio, models.CampusLeonardo, "", 3, 900, 150, 28},
	{"10", "Festa di Laurea", "Celebriamo la laurea di Maria! Tutti invitati al bar del campus giovedì sera!", models.CategorySocial, models.CampusBovisa, "10 Novembre, 21:00", 20, 1100, 250, 35},
	{"11", "Partita Basket", "Cerchiamo giocatori per completare la squadra di basket. Allenamento ogni martedì.", models.CategorySport, models.CampusBovisa, "", 7, 320, 800, 27},
	{"12", "Progetto Ingegneria", "Cerco 2 persone per completare il team del progetto di Ingegneria del Software.", models.CategoryStudio, models.CampusLeonardo, "5 Novembre", 3, 580, 920, 32},
	{"13", "Karaoke Night", "Serata karaoke per rilassarsi dopo gli esami! Portate i vostri amici!", models.CategorySocial, models.CampusLeonardo, "", 18, 1250, 450, 29},
	{"14", "Trekking Gruppo", "Escursione domenicale in montagna. Difficoltà media, esperienza consigliata.", models.CategorySport, models.CampusLeonardo, "8 Novembre", 9, 850, 650, 31},
	{"15", "Preparazione TOEFL", "Gruppo di studio per preparazione esame TOEFL. Cerchiamo altri interessati.", models.CategoryStudio, models.CampusBovisa, "", 4, 1400, 120, 26},
	{"16", "Aperitivo Erasmus", "Aperitivo di benvenuto per gli studenti Erasmus appena arrivati!", models.CategorySocial, models.CampusLeonardo, "", 25, 650, 1150, 33},
	{"17", "Torneo Tennis", "Torneo di tennis inter-universitario. Iscrizioni aperte fino a venerdì!", models.CategorySport, models.CampusBovisa, "", 12, 1550, 380, 34},
	{"18", "Hackathon Weekend", "Hackathon di 48 ore! Premi per i migliori progetti. Tutti i livelli benvenuti.", models.CategoryStudio, models.CampusLeonardo, "3 Novembre", 30, 280, 1350, 40},
	{"19", "Cena Multiculturale", "Cena con piatti da tutto il mondo! Ognuno porta un piatto tipico del proprio paese.", models.CategorySocial, models.CampusBovisa, "", 22, 1700, 650, 38},
	{"20", "Palestra Gruppo", "Gruppo palestra per principianti. Allenamento 3 volte a settimana con personal trainer.", models.CategorySport, models.CampusLeonardo, "", 8, 950, 1450, 36},
	{"21", "Gruppo Studio Fisica", "Cerco compagni per studiare Fisica 2 in preparazione dell'esame di febbraio. Disponibile tutti i pomeriggi in biblioteca.", models.CategoryStudio, models.CampusLeonardo, "15 Gennaio, 14:30", 4, 50, 50, 25},
	{"22", "Aperitivo di Capodanno", "Aperitivo pre-capodanno per tutti gli studenti! Ci vediamo al bar del campus per festeggiare insieme.", models.CategorySocial, models.CampusLeonardo, "18 Gennaio, 18:00", 12, 350, 80, 2},
	{"23", "Torneo Pallavolo", "Torneo di pallavolo amichevole. Cerchiamo altre squadre interessate a partecipare!", models.CategorySport, models.CampusBovisa, "20 Gennaio, 15:00", 8, 680, 120, 15},
	{"24", "Laboratorio Raspberry Pi", "Workshop su Raspberry Pi e IoT. Portate il vostro laptop! Esperienza base richiesta.", models.CategoryStudio, models.CampusBovisa, "17 Gennaio, 10:00", 6, 120, 380, 5},
	{"25", "Sessione Pilates", "Pilates per studenti stressati! Sessione gratuita di rilassamento prima degli esami.", models.CategorySport, models.CampusLeonardo, "16 Gennaio, 17:30", 10, 450, 340, 10},
	{"26", "Scambio Appunti Chimica", "Ho appunti completi di Chimica 2, cerco appunti di Fisica per scambio.", models.CategoryStudio, models.CampusLeonardo, "", 2, 750, 400, 1},
	{"27", "Film Night", "Serata cinema all'aula magna. Votate il film che volete vedere!", models.CategorySocial, models.CampusBovisa, "19 Gennaio, 20:00", 15, 200, 600, 7},
	{"28", "Corsa Mattutina", "Gruppo di running mattutino. Partiamo dal campus alle 7:00, percorso 5km.", models.CategorySport, models.CampusLeonardo, "", 5, 520, 580, 30},
	{"29", "Ripetizioni Matematica", "Offro ripetizioni di matematica per studenti del primo anno. Esperienza pluriennale.", models.CategoryStudio, models.CampusLeonardo, "", 3, 900, 150, 28},
	{"30", "Festa di Laurea", "Celebriamo la laurea di Maria! Tutti invitati al bar del campus giovedì sera!", models.CategorySocial, models.CampusBovisa, "10 Novembre, 21:00", 20, 1100, 250, 35},
	{"36", "Club Fotografia", "Gruppo di appassionati di fotografia. Usciamo ogni weekend per esplorare Milano e scattare foto!", models.CategoryPassions, models.CampusLeonardo, "17 Dicembre, 10:00", 8, 1200, 900, 4},
	{"37", "Gaming Night", "Serata gaming con console e PC. Giochi multiplayer e competizioni amichevoli!", models.CategoryPassions, models.CampusBovisa, "19 Dicembre, 19:00", 15, 1500, 850, 8},
	{"38", "Book Club", "Club di lettura mensile. Questo mese leggiamo \"1984\" di Orwell. Discussione aperta a tutti!", models.CategoryPassions, models.CampusLeonardo, "", 6, 1800, 1000, 12},
	{"39", "Musica dal Vivo", "Gruppo di musicisti si ritrova per jam session. Tutti gli strumenti benvenuti!", models.CategoryPassions, models.CampusBovisa, "20 Dicembre, 18:00", 10, 2100, 780, 20},
	{"40", "Cineforum", "Proiezione e discussione di film d'autore. Questo mese: Fellini.", models.CategoryPassions, models.CampusLeonardo, "", 12, 2400, 950, 18},
	{"41", "Caffè alle 11", "Pausa caffè mattutina! Ci vediamo al bar del campus per una chiacchierata rilassante.", models.CategoryCoffeeBreak, models.CampusLeonardo, "16 Dicembre, 11:00", 5, 300, 1500, 1},
	{"42", "Break Pomeridiano", "Pausa caffè dopo le lezioni. Perfetto per rilassarsi e conoscere nuove persone!", models.CategoryCoffeeBreak, models.CampusBovisa, "17 Dicembre, 15:30", 7, 600, 1600, 3},
	{"43", "Caffè e Dolce", "Pausa caffè con dolcetti fatti in casa! Ognuno porta qualcosa da condividere.", models.CategoryCoffeeBreak, models.CampusLeonardo, "", 9, 900, 1700, 6},
	{"44", "Caffè Mattutino", "Sveglia con un buon caffè prima delle lezioni delle 8:30!", models.CategoryCoffeeBreak, models.CampusBovisa, "18 Dicembre, 08:00", 4, 1200, 1550, 9},
	{"45", "Break Esami", "Pausa caffè durante la sessione esami. Ci sosteniamo a vicenda!", models.CategoryCoffeeBreak, models.CampusLeonardo, "", 8, 1500, 1650, 14},
	{"46", "Pranzo in Mensa", "Pranzo di gruppo in mensa! Così non mangiamo da soli e facciamo nuove conoscenze.", models.CategoryLunch, models.CampusLeonardo, "16 Dicembre, 12:30", 6, 2000, 1400, 2},
	{"47", "Pranzo al Sacco", "Pranzo al parco con panini e cibo da casa. Bello con il bel tempo!", models.CategoryLunch, models.CampusBovisa, "17 Dicembre, 13:00", 8, 2300, 1500, 5},
	{"48", "Pizza tutti insieme", "Andiamo in pizzeria! Dividiamo il conto e mangiamo una buona pizza napoletana.", models.CategoryLunch, models.CampusLeonardo, "", 10, 2600, 1350, 11},
	{"49", "Poke Bowl", "Pranzo healthy con poke bowl! Chi viene?", models.CategoryLunch, models.CampusBovisa, "19 Dicembre, 12:00", 5, 2900, 1450, 16},
	{"50", "Pranzo Internazionale", "Pranzo al ristorante etnico. Ogni settimana una cucina diversa!", models.CategoryLunch, models.CampusLeonardo, "", 12, 3200, 1550, 22},
}

// StarterPostIts строит стартовый набор относительно now.
// Цвет каждой записи - канонический цвет ее категории.
func StarterPostIts(now time.Time) []models.PostIt {
	out := make([]models.PostIt, 0, len(starters))
	for _, s := range starters {
		color, _ := models.CanonicalColor(s.category)
		out = append(out, models.PostIt{
			ID:           s.id,
			Title:        s.title,
			Content:      s.content,
			Category:     s.category,
			Campus:       s.campus,
			Date:         s.date,
			CreatedAt:    isoTime(now.AddDate(0, 0, -s.ageDays)),
			Participants: s.participants,
			Position:     models.Position{X: s.x, Y: s.y},
			Color:        color,
		})
	}
	return out
}

// isoTime форматирует время с точностью до миллисекунд в UTC.
func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
